// Package browser opens the kiosk page on the machine running the server.
package browser

import (
	"net/url"
	"os/exec"
	"runtime"

	"github.com/abrezinsky/gatecheck/internal/errors"
)

// Commander is an interface for executing commands (for testing)
type Commander interface {
	Start(name string, args ...string) error
	LookPath(name string) (string, error)
}

// RealCommander executes actual commands
type RealCommander struct{}

// Start executes a command and starts it
func (RealCommander) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	return cmd.Start()
}

// LookPath finds an executable in PATH
func (RealCommander) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// kioskBrowsers are tried in order for full-screen mode
var kioskBrowsers = map[string][]string{
	"linux":   {"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"},
	"darwin":  {"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome", "/Applications/Chromium.app/Contents/MacOS/Chromium"},
	"windows": {"chrome.exe", "msedge.exe"},
}

// Launcher opens URLs in a local browser
type Launcher struct {
	Commander Commander
	GOOS      string
	// Kiosk asks for a full-screen app window. Without a Chromium-family
	// browser it falls back to the system default.
	Kiosk bool
}

// NewLauncher creates a launcher for the current platform
func NewLauncher(kiosk bool) *Launcher {
	return &Launcher{Commander: RealCommander{}, GOOS: runtime.GOOS, Kiosk: kiosk}
}

// Open opens rawURL, full screen when l.Kiosk is set
func (l *Launcher) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.InvalidInputf("not an http(s) URL: %q", rawURL)
	}

	if l.Kiosk {
		if name, ok := l.kioskBrowser(); ok {
			return l.Commander.Start(name, "--kiosk", "--app="+rawURL, "--autoplay-policy=no-user-gesture-required")
		}
	}

	name, args, err := defaultOpener(l.GOOS, rawURL)
	if err != nil {
		return err
	}
	return l.Commander.Start(name, args...)
}

func (l *Launcher) kioskBrowser() (string, bool) {
	for _, candidate := range kioskBrowsers[l.GOOS] {
		if path, err := l.Commander.LookPath(candidate); err == nil {
			return path, true
		}
	}
	return "", false
}

func defaultOpener(goos, rawURL string) (string, []string, error) {
	switch goos {
	case "linux":
		return "xdg-open", []string{rawURL}, nil
	case "darwin": // macOS
		return "open", []string{rawURL}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}, nil
	default:
		return "", nil, errors.Unavailable("unsupported platform: " + goos)
	}
}
