package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"godash/internal/app"
	"godash/internal/services/listing"

	"github.com/spf13/cobra"
)

type listOptions struct {
	view      string
	page      int
	sort      string
	filters   []string
	queryOnly bool
}

func newListCmd(load loader) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list <view>",
		Short: "Print one page of a list view",
		Long: "Opens a list view with its default filter, applies the given sort and filters, " +
			"moves to the requested page and prints the page as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.view = args[0]
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return runList(cmd.Context(), a.Listing, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number (1-based)")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "sort column; prefix with - for descending")
	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil, "filter as key=value, repeatable; an empty value clears the key")
	cmd.Flags().BoolVar(&opts.queryOnly, "query-only", false, "print the derived state and query without fetching")
	return cmd
}

// runList drives a session the way the dashboard does: sort and filters first,
// since both reset the page, then the page.
func runList(ctx context.Context, svc *listing.Service, out io.Writer, opts listOptions) error {
	snap, err := svc.Open(opts.view)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close(snap.ID) }()

	if field := strings.TrimPrefix(opts.sort, "-"); field != "" {
		if _, err := svc.SetSort(snap.ID, field); err != nil {
			return err
		}
		if strings.HasPrefix(opts.sort, "-") {
			if _, err := svc.SetSort(snap.ID, field); err != nil {
				return err
			}
		}
	}

	for _, f := range opts.filters {
		key, value, err := parseFilter(f)
		if err != nil {
			return err
		}
		if _, err := svc.SetFilterField(snap.ID, key, value); err != nil {
			return err
		}
	}

	if snap, err = svc.SetPage(snap.ID, opts.page); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if opts.queryOnly {
		return enc.Encode(snap)
	}
	page, err := svc.Load(ctx, snap.ID)
	if err != nil {
		return err
	}
	return enc.Encode(page)
}

func parseFilter(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid filter %q: expected key=value", s)
	}
	return key, strings.TrimSpace(value), nil
}
