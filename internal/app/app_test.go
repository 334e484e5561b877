package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/abrezinsky/gatecheck/internal/camera"
	"github.com/abrezinsky/gatecheck/internal/config"
	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/internal/repository"
)

// Helper functions

func createTestTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"kiosk.html": &fstest.MapFile{
			Data: []byte(`<html><head><title>{{.Title}}</title></head><body>{{.SessionID}}</body></html>`),
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Addr:           "127.0.0.1:0",
		DBPath:         ":memory:",
		RequestTimeout: time.Second,
		DedupeWindow:   1500 * time.Millisecond,
		LogLevel:       "info",
		LogFormat:      "text",
		Camera:         config.CameraBrowser,
		CameraTimeout:  time.Second,
		SpoolInterval:  50 * time.Millisecond,
	}
}

func createTestAppWithConfig(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := New(logger.Discard(), cfg, createTestTemplatesFS(), fstest.MapFS{})
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func createTestApp(t *testing.T) *App {
	t.Helper()
	return createTestAppWithConfig(t, testConfig())
}

// ==================== Construction ====================

func TestNew_InitializesApp(t *testing.T) {
	app := createTestApp(t)

	if app.handlers == nil {
		t.Error("expected handlers to be initialized")
	}
	if app.repo == nil {
		t.Error("expected repo to be initialized")
	}
	if app.Session() == nil || app.Tickets() == nil {
		t.Error("expected session and ticket service")
	}
	if app.publisher.Enabled() {
		t.Error("publisher should be disabled without brokers")
	}
}

func TestNew_FailsWithBadDBPath(t *testing.T) {
	cfg := testConfig()
	cfg.DBPath = "/nonexistent/path/db.sqlite"

	if _, err := New(logger.Discard(), cfg, createTestTemplatesFS(), fstest.MapFS{}); err == nil {
		t.Error("expected error for invalid db path")
	}
}

func TestNew_FailsWithMissingTemplates(t *testing.T) {
	if _, err := New(logger.Discard(), testConfig(), fstest.MapFS{}, fstest.MapFS{}); err == nil {
		t.Error("expected error for missing templates")
	}
}

func TestNew_FailsWithUnknownCamera(t *testing.T) {
	cfg := testConfig()
	cfg.Camera = "usb"

	_, err := New(logger.Discard(), cfg, createTestTemplatesFS(), fstest.MapFS{})
	if err == nil || !strings.Contains(err.Error(), "usb") {
		t.Errorf("expected unknown camera error, got %v", err)
	}
}

func TestNewDevice(t *testing.T) {
	cfg := testConfig()
	cfg.Camera = config.CameraSpool
	cfg.SpoolDir = t.TempDir()

	device, err := newDevice(cfg, nil, logger.Discard())
	if err != nil {
		t.Fatalf("newDevice failed: %v", err)
	}
	if _, ok := device.(*camera.SpoolDevice); !ok {
		t.Errorf("expected spool device, got %T", device)
	}
}

func TestNew_AppliesConfiguredSettings(t *testing.T) {
	cfg := testConfig()
	cfg.CheckInURL = "https://tickets.example.com/api/checkin"
	cfg.EventLabel = "Spring Gala"
	cfg.TicketBaseURL = "https://tickets.example.com/t"
	app := createTestAppWithConfig(t, cfg)
	ctx := context.Background()

	settings, err := app.settings.AllSettings(ctx)
	if err != nil {
		t.Fatalf("AllSettings failed: %v", err)
	}
	if settings.CheckInURL != cfg.CheckInURL || settings.EventLabel != "Spring Gala" || settings.TicketBaseURL != cfg.TicketBaseURL {
		t.Errorf("configured settings not stored: %+v", settings)
	}
}

// ==================== Defaults ====================

func TestSeedDefaults_SetsWhenEmpty(t *testing.T) {
	app := createTestApp(t)
	app.cfg.EventLabel = "Gate A"

	app.seedDefaults(context.Background())

	val, err := app.repo.GetSetting(context.Background(), repository.SettingEventLabel)
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if val != "Gate A" {
		t.Errorf("expected event_label to be seeded, got %q", val)
	}
}

func TestSeedDefaults_DoesNotOverwrite(t *testing.T) {
	app := createTestApp(t)
	ctx := context.Background()

	if err := app.repo.SetSetting(ctx, repository.SettingEventLabel, "Edited in the kiosk"); err != nil {
		t.Fatalf("failed to set initial setting: %v", err)
	}
	app.cfg.EventLabel = "From config"
	app.seedDefaults(ctx)

	val, _ := app.repo.GetSetting(ctx, repository.SettingEventLabel)
	if val != "Edited in the kiosk" {
		t.Errorf("expected event_label to remain unchanged, got %q", val)
	}
}

func TestSeedDefaults_HandlesRepoError(t *testing.T) {
	app := createTestApp(t)
	app.repo.DB().Close()
	app.cfg.EventLabel = "Gate A"

	// Should not panic even if repo is closed - just logs warning
	app.seedDefaults(context.Background())
}

// ==================== Serving ====================

func TestApp_Router_ServesRequests(t *testing.T) {
	app := createTestApp(t)
	server := httptest.NewServer(app.Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/session")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for /api/session, got %d", resp.StatusCode)
	}
	var snap models.SessionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if snap.SessionID != app.Session().ID() {
		t.Errorf("SessionID = %q, want %q", snap.SessionID, app.Session().ID())
	}
}

func TestApp_StartWithoutKioskPage(t *testing.T) {
	app := createTestApp(t)
	server := httptest.NewServer(app.Router())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/session/start", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with no kiosk page connected, got %d", resp.StatusCode)
	}
	if snap := app.Session().Snapshot(); snap.Scanning || snap.Error == "" {
		t.Errorf("expected an idle session with an error, got %+v", snap)
	}
}

func TestApp_Serve_ShutsDownOnCancel(t *testing.T) {
	app := createTestApp(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Serve(ctx, ln)
	}()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200 from /healthz, got %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestApp_Run_BadAddress(t *testing.T) {
	app := createTestApp(t)

	if err := app.Run(context.Background(), "not-an-address"); err == nil {
		t.Error("expected listen error")
	}
}

func TestApp_Close_Twice(t *testing.T) {
	app, err := New(logger.Discard(), testConfig(), createTestTemplatesFS(), fstest.MapFS{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	app.Close()
	// Calling Close multiple times should be safe
	app.Close()
}

// ==================== URLs ====================

func TestKioskURL(t *testing.T) {
	if got := KioskURL("192.168.1.20:8080"); got != "http://192.168.1.20:8080" {
		t.Errorf("KioskURL = %q", got)
	}
	if got := KioskURL("localhost"); got != "http://localhost" {
		t.Errorf("KioskURL without port = %q", got)
	}

	got := KioskURL(":8080")
	if !strings.HasPrefix(got, "http://") || !strings.HasSuffix(got, ":8080") {
		t.Errorf("KioskURL(:8080) = %q", got)
	}
}

func TestLocalURL(t *testing.T) {
	tests := map[string]string{
		":8080":         "http://localhost:8080",
		"0.0.0.0:9000":  "http://localhost:9000",
		"10.0.0.5:8080": "http://localhost:8080",
	}
	for addr, want := range tests {
		if got := LocalURL(addr); got != want {
			t.Errorf("LocalURL(%q) = %q, want %q", addr, got, want)
		}
	}
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
			name:     "network error",
			provider: mockNetworkProvider{err: net.ErrClosed},
			want:     "localhost",
		},
		{
			name: "addrs error",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, err: net.ErrClosed},
			}},
			want: "localhost",
		},
		{
			name: "interface down",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: 0, addrs: []net.Addr{ipNet("192.168.1.10")}},
			}},
			want: "localhost",
		},
		{
			name: "loopback interface",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("127.0.0.1")}},
			}},
			want: "localhost",
		},
		{
			name: "IPAddr",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("192.168.1.100")}}},
			}},
			want: "192.168.1.100",
		},
		{
			name: "private preferred over public",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8"), ipNet("172.20.0.4")}},
			}},
			want: "172.20.0.4",
		},
		{
			name: "public fallback",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8")}},
			}},
			want: "8.8.8.8",
		},
		{
			name: "skips loopback and IPv6 addresses",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("127.0.0.1"), &net.IPNet{IP: net.ParseIP("fe80::1")}, ipNet("10.1.2.3")}},
			}},
			want: "10.1.2.3",
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

func TestGetPreferredIP_Real(t *testing.T) {
	ip := getPreferredIP(realNetworkProvider{})
	if ip == "" {
		t.Fatal("expected non-empty IP")
	}
	if ip != "localhost" && net.ParseIP(ip) == nil {
		t.Errorf("expected valid IP or 'localhost', got: %s", ip)
	}
}
