package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/gatecheck/internal/services"
	"github.com/abrezinsky/gatecheck/internal/ticketcode"
)

type qrOptions struct {
	output string
	size   int
}

func (c *cli) newQRCmd() *cobra.Command {
	opts := &qrOptions{}
	cmd := &cobra.Command{
		Use:   "qr <ticket-code>",
		Short: "Render a ticket QR code as PNG",
		Long: `Render the QR label for a ticket code. When ticket_base_url is set the QR
encodes <base>?code=<CODE>, otherwise the bare code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQR(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file, "-" for stdout (default <CODE>.png)`)
	cmd.Flags().IntVar(&opts.size, "size", services.DefaultQRSize, "image size in pixels")
	return cmd
}

func (c *cli) runQR(cmd *cobra.Command, opts *qrOptions, code string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())

	qr := services.NewTicketQRService(log, services.StaticBaseURL(cfg.TicketBaseURL))
	png, err := qr.QRImage(cmd.Context(), code, opts.size)
	if err != nil {
		return err
	}

	if opts.output == "-" {
		_, err := cmd.OutOrStdout().Write(png)
		return err
	}

	path := opts.output
	if path == "" {
		path = ticketcode.Extract(code) + ".png"
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%sWrote %s%s\n", green, path, reset)
	return nil
}
