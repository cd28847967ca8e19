package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"godash/internal/app"
	"godash/internal/config"
	"godash/internal/provider"

	miniredis "github.com/alicebob/miniredis/v2"
)

// fakeGoAPI serves a tiny emergencies list and records what it was asked.
func fakeGoAPI(t *testing.T, calls *atomic.Int32, lastQuery *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		lastQuery.Store(r.URL.RawQuery)
		if r.Header.Get("Authorization") != "Token integration" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/api/v2/event/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":3,"next":null,"previous":null,"results":[
			{"id":3,"name":"Cyclone Freddy","dtype":{"id":4,"name":"Cyclone"}},
			{"id":2,"name":"Floods","dtype":{"id":12,"name":"Flood"}},
			{"id":1,"name":"Drought","dtype":{"id":20,"name":"Drought"}}
		]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL, redisAddr string) config.Cfg {
	return config.Cfg{
		App:     config.AppCfg{Env: "test", Port: "0"},
		API:     config.APICfg{BaseURL: baseURL, Token: "integration", TimeoutSec: 5, MaxRetries: 0},
		Redis:   config.RedisCfg{Addr: redisAddr, TTL: time.Minute},
		Session: config.SessionCfg{TTL: time.Hour},
		Sync:    config.SyncCfg{Concurrency: 1},
	}
}

// TestDashboardIntegration drives a list view end to end: HTTP API, listing
// service, Redis page cache and the upstream client.
func TestDashboardIntegration(t *testing.T) {
	var calls atomic.Int32
	var lastQuery atomic.Value
	upstream := fakeGoAPI(t, &calls, &lastQuery)
	mr := miniredis.RunT(t)

	a, err := app.Build(context.Background(), testConfig(upstream.URL, mr.Addr()))
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.Close()

	if a.Cache == nil {
		t.Fatal("expected the Redis cache to be wired")
	}
	if a.Sync != nil {
		t.Fatal("mirror sync must stay disabled without DB_DSN")
	}
	if got := a.Sources.ListSources(); len(got) != 1 || got[0] != provider.SourceGoAPI {
		t.Fatalf("unexpected sources: %v", got)
	}

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	// Open a session on the emergencies view
	resp, err := http.Post(srv.URL+"/api/v1/views/emergencies/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	var snap struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || snap.ID == "" {
		t.Fatalf("open session: status %d", resp.StatusCode)
	}
	base := srv.URL + "/api/v1/sessions/" + snap.ID

	// Sort by name twice: descending
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodPut, base+"/sort", strings.NewReader(`{"field":"name"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("sort: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("sort: status %d", resp.StatusCode)
		}
	}

	// Load twice; the second load is served from Redis
	for i := 0; i < 2; i++ {
		resp, err := http.Get(base + "/page")
		if err != nil {
			t.Fatalf("load page: %v", err)
		}
		var page struct {
			Meta struct {
				TotalPages int  `json:"total_pages"`
				HasNext    bool `json:"has_next"`
			} `json:"meta"`
			Results []json.RawMessage `json:"results"`
			Stale   bool              `json:"stale"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			t.Fatalf("decode page: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("load page: status %d", resp.StatusCode)
		}
		if len(page.Results) != 3 || page.Meta.TotalPages != 1 || page.Meta.HasNext || page.Stale {
			t.Fatalf("unexpected page: %+v", page)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call thanks to the cache, got %d", got)
	}
	q, _ := lastQuery.Load().(string)
	for _, want := range []string{"ordering=-name", "limit=10", "offset=0", "disaster_start_date__gte="} {
		if !strings.Contains(q, want) {
			t.Fatalf("upstream query %q lacks %q", q, want)
		}
	}
}

// TestUpstreamFailureIsBadGateway checks error mapping through the whole stack.
func TestUpstreamFailureIsBadGateway(t *testing.T) {
	var calls atomic.Int32
	var lastQuery atomic.Value
	upstream := fakeGoAPI(t, &calls, &lastQuery)

	cfg := testConfig(upstream.URL, "")
	cfg.API.Token = "wrong"
	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.Close()

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/views/emergencies/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	var snap struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/sessions/" + snap.ID + "/page")
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}
