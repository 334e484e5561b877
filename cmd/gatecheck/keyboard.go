package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/models"
)

// kioskSession is the part of the scan session the operator drives from the terminal
type kioskSession interface {
	Snapshot() models.SessionSnapshot
	Start(ctx context.Context) error
	Stop()
	ToggleTorch(ctx context.Context) error
	ModalOK()
}

// keyboard maps single keystrokes on the server terminal to actions
type keyboard struct {
	session  kioskSession
	log      logger.Logger
	out      io.Writer
	kioskURL string
	open     func(url string) error
	quit     context.CancelFunc
}

// run reads keys from in until ctx is done or in fails
func (k *keyboard) run(ctx context.Context, in io.Reader) {
	buf := make([]byte, 1)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := in.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		if !k.handle(ctx, buf[0]) {
			return
		}
	}
}

// handle performs the action bound to key. It returns false once the server should quit.
func (k *keyboard) handle(ctx context.Context, key byte) bool {
	switch strings.ToLower(string(key)) {
	case "s":
		if k.session.Snapshot().Scanning {
			k.session.Stop()
			fmt.Fprintf(k.out, "%sScanning stopped%s\n", yellow, reset)
		} else {
			fmt.Fprintf(k.out, "%sStarting camera...%s\n", cyan, reset)
			go func() {
				if err := k.session.Start(ctx); err != nil {
					fmt.Fprintf(k.out, "%sCamera failed: %v%s\n", red, err, reset)
				}
			}()
		}
	case "t":
		if err := k.session.ToggleTorch(ctx); err != nil {
			fmt.Fprintf(k.out, "%sTorch: %v%s\n", red, err, reset)
		} else {
			fmt.Fprintf(k.out, "%sTorch %s%s\n", green, onOff(k.session.Snapshot().TorchOn), reset)
		}
	case "o":
		k.session.ModalOK()
		fmt.Fprintf(k.out, "%sResult dismissed%s\n", green, reset)
	case "a":
		fmt.Fprintf(k.out, "%sOpening kiosk page in browser...%s\n", cyan, reset)
		if err := k.open(k.kioskURL); err != nil {
			fmt.Fprintf(k.out, "%sError opening browser: %v%s\n", red, err, reset)
		}
	case "h":
		if k.log.IsHTTPLoggingEnabled() {
			k.log.DisableHTTPLogging()
			fmt.Fprintf(k.out, "%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			k.log.EnableHTTPLogging()
			fmt.Fprintf(k.out, "%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		next := logger.NextLevel(k.log.GetLevel())
		k.log.SetLevel(next)
		fmt.Fprintf(k.out, "%sLog level: %s%s%s\n", green, yellow, strings.ToLower(next.String()), reset)
	case "q", "\x03": // Ctrl+C arrives as a byte in raw mode
		fmt.Fprintf(k.out, "%sShutting down server...%s\n", yellow, reset)
		k.quit()
		return false
	case "?":
		printKeyboardHelp(k.out)
	}
	return true
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// printKeyboardHelp displays available keyboard shortcuts
func printKeyboardHelp(w io.Writer) {
	fmt.Fprintf(w, "\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Fprintf(w, "    %ss%s      - Start / stop scanning\n", cyan, reset)
	fmt.Fprintf(w, "    %st%s      - Toggle torch\n", cyan, reset)
	fmt.Fprintf(w, "    %so%s      - Dismiss the result dialog\n", cyan, reset)
	fmt.Fprintf(w, "    %sa%s      - Open kiosk page in browser\n", cyan, reset)
	fmt.Fprintf(w, "    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Fprintf(w, "    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Fprintf(w, "    %sq%s      - Quit server\n", cyan, reset)
	fmt.Fprintf(w, "    %s?%s      - Show this help\n\n", cyan, reset)
}
