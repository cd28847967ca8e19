package cli

import (
	"encoding/json"
	"errors"

	"godash/internal/app"

	"github.com/spf13/cobra"
)

func newSyncCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy every view's upstream records into the mirror database once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if !cfg.MirrorEnabled() {
				return errors.New("DB_DSN is not set; nothing to sync into")
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, syncErr := a.Sync.SyncOnce(cmd.Context())
			if report != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			}
			return syncErr
		},
	}
}
