package browser

import (
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/abrezinsky/gatecheck/internal/errors"
)

// mockCommander records command executions for testing
type mockCommander struct {
	lastCommand string
	lastArgs    []string
	startError  error
	installed   map[string]bool
	looked      []string
}

func (m *mockCommander) Start(name string, args ...string) error {
	m.lastCommand = name
	m.lastArgs = args
	return m.startError
}

func (m *mockCommander) LookPath(name string) (string, error) {
	m.looked = append(m.looked, name)
	if m.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

const kioskURL = "http://192.168.1.20:8080/"

func TestLauncher_DefaultOpeners(t *testing.T) {
	tests := []struct {
		goos     string
		wantCmd  string
		wantArgs []string
	}{
		{"linux", "xdg-open", []string{kioskURL}},
		{"darwin", "open", []string{kioskURL}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", kioskURL}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			mock := &mockCommander{}
			l := &Launcher{Commander: mock, GOOS: tt.goos}

			if err := l.Open(kioskURL); err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if mock.lastCommand != tt.wantCmd {
				t.Errorf("expected command %q, got %q", tt.wantCmd, mock.lastCommand)
			}
			if strings.Join(mock.lastArgs, " ") != strings.Join(tt.wantArgs, " ") {
				t.Errorf("expected args %v, got %v", tt.wantArgs, mock.lastArgs)
			}
			if len(mock.looked) != 0 {
				t.Errorf("non-kiosk open should not search for browsers, looked up %v", mock.looked)
			}
		})
	}
}

func TestLauncher_KioskMode(t *testing.T) {
	mock := &mockCommander{installed: map[string]bool{"google-chrome": true}}
	l := &Launcher{Commander: mock, GOOS: "linux", Kiosk: true}

	if err := l.Open(kioskURL); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if mock.lastCommand != "/usr/bin/google-chrome" {
		t.Errorf("expected chrome, got %q", mock.lastCommand)
	}
	args := strings.Join(mock.lastArgs, " ")
	if !strings.Contains(args, "--kiosk") || !strings.Contains(args, "--app="+kioskURL) {
		t.Errorf("expected kiosk args, got %v", mock.lastArgs)
	}
	// chromium variants are preferred and were tried first
	if len(mock.looked) != 3 || mock.looked[0] != "chromium" {
		t.Errorf("unexpected lookup order %v", mock.looked)
	}
}

func TestLauncher_KioskFallsBack(t *testing.T) {
	mock := &mockCommander{}
	l := &Launcher{Commander: mock, GOOS: "linux", Kiosk: true}

	if err := l.Open(kioskURL); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if mock.lastCommand != "xdg-open" {
		t.Errorf("expected fallback to xdg-open, got %q", mock.lastCommand)
	}
}

func TestLauncher_UnsupportedPlatform(t *testing.T) {
	mock := &mockCommander{}
	l := &Launcher{Commander: mock, GOOS: "plan9"}

	err := l.Open(kioskURL)
	if err == nil {
		t.Fatal("expected error for unsupported platform, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported platform") || !strings.Contains(err.Error(), "plan9") {
		t.Errorf("unexpected error: %v", err)
	}
	if !errors.IsKind(err, errors.ErrUnavailable) {
		t.Errorf("expected unavailable kind, got %v", errors.KindOf(err))
	}
	if mock.lastCommand != "" {
		t.Error("nothing should be started")
	}
}

func TestLauncher_RejectsNonHTTPURLs(t *testing.T) {
	for _, raw := range []string{"", "file:///etc/passwd", "javascript:alert(1)", "localhost:8080", "http://"} {
		t.Run(raw, func(t *testing.T) {
			mock := &mockCommander{}
			l := &Launcher{Commander: mock, GOOS: "linux"}

			err := l.Open(raw)
			if !errors.IsKind(err, errors.ErrInvalidInput) {
				t.Errorf("Open(%q) = %v, want invalid input", raw, err)
			}
			if mock.lastCommand != "" {
				t.Errorf("Open(%q) started %q", raw, mock.lastCommand)
			}
		})
	}
}

func TestLauncher_CommandError(t *testing.T) {
	mock := &mockCommander{startError: fmt.Errorf("command execution failed")}
	l := &Launcher{Commander: mock, GOOS: "linux"}

	err := l.Open(kioskURL)
	if err == nil || err.Error() != "command execution failed" {
		t.Errorf("expected commander error, got: %v", err)
	}
}

func TestNewLauncher(t *testing.T) {
	l := NewLauncher(true)
	if !l.Kiosk || l.GOOS == "" {
		t.Errorf("unexpected launcher %+v", l)
	}
	if _, ok := l.Commander.(RealCommander); !ok {
		t.Errorf("expected RealCommander, got %T", l.Commander)
	}
}

func TestRealCommander(t *testing.T) {
	commander := RealCommander{}

	if err := commander.Start("nonexistent-command-xyz-123"); err == nil {
		t.Error("expected error for nonexistent command, got nil")
	}
	if _, err := commander.LookPath("nonexistent-command-xyz-123"); err == nil {
		t.Error("expected LookPath error for nonexistent command, got nil")
	}
}
