package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/goleak"

	"github.com/abrezinsky/gavel/internal/config"
	"github.com/abrezinsky/gavel/internal/logger"
	"github.com/abrezinsky/gavel/pkg/roster"
)

func createTestTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"layout.html":  &fstest.MapFile{Data: []byte(`{{define "layout"}}<html><body>{{template "content" .}}</body></html>{{end}}`)},
		"index.html":   &fstest.MapFile{Data: []byte(`{{define "content"}}Committees{{end}}`)},
		"session.html": &fstest.MapFile{Data: []byte(`{{define "content"}}{{.Committee.Name}}{{end}}`)},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.DBPath = ":memory:"
	return cfg
}

func createTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	app, err := New(logger.Discard(), cfg, roster.NewMockClient(), createTestTemplatesFS(), fstest.MapFS{})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func TestNew_InitializesApp(t *testing.T) {
	app := createTestApp(t, nil)

	if app.handlers == nil {
		t.Error("expected handlers to be initialized")
	}
	if app.repo == nil {
		t.Error("expected repo to be initialized")
	}
	if app.sessions == nil || app.hub == nil {
		t.Error("expected session service and hub to be initialized")
	}
}

func TestNew_FailsWithBadDBPath(t *testing.T) {
	cfg := testConfig()
	cfg.DBPath = "/nonexistent/path/db.sqlite"

	if _, err := New(logger.Discard(), cfg, roster.NewMockClient(), createTestTemplatesFS(), fstest.MapFS{}); err == nil {
		t.Error("expected error for invalid db path")
	}
}

func TestNew_FailsWithMissingTemplates(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, err := New(logger.Discard(), testConfig(), roster.NewMockClient(), fstest.MapFS{}, fstest.MapFS{})
	if err == nil {
		t.Error("expected error for missing templates")
	}
}

func TestNew_StoresConfiguredURLs(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = "http://gavel.example:8081"
	cfg.RosterURL = "http://roster.example"
	app := createTestApp(t, cfg)

	ctx := context.Background()
	for key, want := range map[string]string{"base_url": cfg.BaseURL, "roster_url": cfg.RosterURL} {
		got, err := app.repo.GetSetting(ctx, key)
		if err != nil {
			t.Fatalf("failed to get %s: %v", key, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestApp_Router_ServesRequests(t *testing.T) {
	app := createTestApp(t, nil)
	server := httptest.NewServer(app.Router())
	defer server.Close()

	for _, path := range []string{"/", "/health", "/metrics", "/api/committees"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("request to %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestApp_ImportThenFollowSession(t *testing.T) {
	app := createTestApp(t, nil)
	server := httptest.NewServer(app.Router())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/committees/import", "application/json",
		jsonBody(t, map[string]string{"provider_url": "http://roster.test", "ref": "mock"}))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var result struct {
		CommitteeID int64 `json:"committee_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode import: %v", err)
	}

	view, err := app.sessions.State(context.Background(), result.CommitteeID)
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	if len(view.Members) != 15 {
		t.Errorf("expected 15 members, got %d", len(view.Members))
	}
}

func TestApp_Close_Idempotent(t *testing.T) {
	app := createTestApp(t, nil)

	app.Close()
	app.Close()
}

func TestApp_Run_StopsOnClose(t *testing.T) {
	app := createTestApp(t, nil)

	done := make(chan error, 1)
	go func() {
		done <- app.Run("127.0.0.1:0")
	}()

	// Give the listener a moment before shutting it down
	time.Sleep(50 * time.Millisecond)
	app.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestApp_Run_AfterClose(t *testing.T) {
	app := createTestApp(t, nil)
	app.Close()

	if err := app.Run("127.0.0.1:0"); err != nil {
		t.Errorf("expected nil from Run after Close, got %v", err)
	}
}

func TestSetDefaultBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		want     string
	}{
		{"sets when empty", "", "http://192.168.1.100:8080"},
		{"replaces localhost", "http://localhost:8080", "http://192.168.1.100:8080"},
		{"keeps configured URL", "http://192.168.1.50:8080", "http://192.168.1.50:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := createTestApp(t, nil)
			ctx := context.Background()
			if tt.existing != "" {
				if err := app.repo.SetSetting(ctx, "base_url", tt.existing); err != nil {
					t.Fatalf("failed to seed base_url: %v", err)
				}
			}

			app.setDefaultBaseURL("http://192.168.1.100:8080")

			got, err := app.repo.GetSetting(ctx, "base_url")
			if err != nil {
				t.Fatalf("failed to get base_url: %v", err)
			}
			if got != tt.want {
				t.Errorf("base_url = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetDefaultBaseURL_HandlesRepoError(t *testing.T) {
	app := createTestApp(t, nil)
	app.repo.DB().Close()

	// Only logs a warning
	app.setDefaultBaseURL("http://192.168.1.100:8080")
}

// mockInterface implements networkInterface for testing
type mockInterface struct {
	flags net.Flags
	addrs []net.Addr
	err   error
}

func (m mockInterface) Flags() net.Flags {
	return m.flags
}

func (m mockInterface) Addrs() ([]net.Addr, error) {
	return m.addrs, m.err
}

// mockNetworkProvider implements networkProvider for testing
type mockNetworkProvider struct {
	interfaces []networkInterface
	err        error
}

func (m mockNetworkProvider) Interfaces() ([]networkInterface, error) {
	return m.interfaces, m.err
}

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestGetPreferredIP(t *testing.T) {
	tests := []struct {
		name     string
		provider mockNetworkProvider
		want     string
	}{
		{
			name:     "interfaces error",
			provider: mockNetworkProvider{err: net.ErrClosed},
			want:     "localhost",
		},
		{
			name:     "addrs error",
			provider: mockNetworkProvider{interfaces: []networkInterface{mockInterface{flags: net.FlagUp, err: net.ErrClosed}}},
			want:     "localhost",
		},
		{
			name: "down and loopback interfaces skipped",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: 0, addrs: []net.Addr{ipNet("192.168.1.2")}},
				mockInterface{flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("10.0.0.2")}},
			}},
			want: "localhost",
		},
		{
			name:     "IPAddr form",
			provider: mockNetworkProvider{interfaces: []networkInterface{mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("192.168.1.100")}}}}},
			want:     "192.168.1.100",
		},
		{
			name: "private preferred over public",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8"), ipNet("172.20.0.4")}},
			}},
			want: "172.20.0.4",
		},
		{
			name:     "public fallback",
			provider: mockNetworkProvider{interfaces: []networkInterface{mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8")}}}},
			want:     "8.8.8.8",
		},
		{
			name: "loopback and IPv6 addresses skipped",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("127.0.0.1"), ipNet("fe80::1"), ipNet("192.168.1.50")}},
			}},
			want: "192.168.1.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPreferredIP(tt.provider); got != tt.want {
				t.Errorf("getPreferredIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetPreferredIP_RealNetwork(t *testing.T) {
	ip := getPreferredIP(realNetworkProvider{})
	if ip == "" {
		t.Fatal("IP should never be empty")
	}
	if ip != "localhost" {
		parsed := net.ParseIP(ip)
		if parsed == nil || parsed.To4() == nil {
			t.Errorf("expected IPv4 address or 'localhost', got: %s", ip)
		}
	}
}

func TestIsPrivate172(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.15.0.1", false},
		{"172.32.0.1", false},
		{"192.168.1.1", false},
		{"fe80::1", false},
	}

	for _, tt := range tests {
		if got := isPrivate172(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("isPrivate172(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
	if isPrivate172(nil) {
		t.Error("isPrivate172(nil) should be false")
	}
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewReader(data)
}
