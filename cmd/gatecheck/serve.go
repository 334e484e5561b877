package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abrezinsky/gatecheck/internal/app"
	"github.com/abrezinsky/gatecheck/internal/browser"
	"github.com/abrezinsky/gatecheck/web"
)

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk server (default)",
		Args:  cobra.NoArgs,
		RunE:  c.runServe,
	}
}

func (c *cli) runServe(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdinFd := int(os.Stdin.Fd())
	useKeyboard := !c.noKeyboard && term.IsTerminal(stdinFd)

	// raw mode turns off output newline translation
	var out io.Writer = os.Stdout
	if useKeyboard {
		out = crlfWriter{w: os.Stdout}
	}

	if !c.noBanner {
		printBanner(out)
	}

	appLog := newLogger(cfg, out)
	a, err := app.New(appLog, cfg, web.GetTemplatesFS(), web.GetStaticFS())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	localURL := app.LocalURL(addr)

	fmt.Fprintf(out, "%s%s  Kiosk:%s %s\n", bold, green, reset, app.KioskURL(addr))
	fmt.Fprintf(out, "%s%s  Local:%s %s\n\n", bold, green, reset, localURL)

	launcher := browser.NewLauncher(cfg.BrowserKiosk)
	if cfg.OpenBrowser {
		if err := launcher.Open(localURL); err != nil {
			appLog.Warn("Failed to open browser", "error", err)
		}
	}

	if useKeyboard {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			appLog.Warn("Keyboard shortcuts unavailable", "error", err)
		} else {
			defer term.Restore(stdinFd, oldState)

			ctx, quit := context.WithCancel(ctx)
			defer quit()
			kb := &keyboard{
				session:  a.Session(),
				log:      appLog,
				out:      out,
				kioskURL: localURL,
				open:     launcher.Open,
				quit:     quit,
			}
			printKeyboardHelp(out)
			go kb.run(ctx, os.Stdin)
			return a.Serve(ctx, ln)
		}
	} else if !c.noKeyboard {
		fmt.Fprintf(out, "%sKeyboard shortcuts need an interactive terminal%s\n\n", yellow, reset)
	}

	return a.Serve(ctx, ln)
}
