package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/gatecheck/internal/decoder"
	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/internal/repository"
	"github.com/abrezinsky/gatecheck/internal/scanner"
	"github.com/abrezinsky/gatecheck/internal/services"
	"github.com/abrezinsky/gatecheck/pkg/checkinapi"
)

type checkOptions struct {
	noRecord bool
	asJSON   bool
}

func (c *cli) newCheckCmd() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check <ticket-code-or-url>",
		Short: "Validate one ticket code against the check-in endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.noRecord, "no-record", false, "do not write the answer to the scan journal")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the outcome as JSON")
	return cmd
}

func (c *cli) runCheck(cmd *cobra.Command, opts *checkOptions, text string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.ErrOrStderr())
	ctx := cmd.Context()

	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	client := checkinapi.NewHTTPClient(cfg.CheckInURL, cfg.RequestTimeout, log)
	settings := services.NewSettingsService(log, repo, client)
	if err := settings.Apply(ctx, cfg.CheckInURL); err != nil {
		return err
	}

	session := scanner.New(log, nil, decoder.New(), client, scanner.Options{RequestTimeout: cfg.RequestTimeout})
	if !opts.noRecord {
		session.SetRecorder(services.NewHistoryService(log, repo))
	}

	outcome := session.Validate(ctx, text)
	session.Wait()
	if outcome == nil {
		return services.ErrInvalidTicketCode
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			return err
		}
	} else {
		printOutcome(out, outcome)
	}

	switch outcome.Kind {
	case models.OutcomeSuccess, models.OutcomeAlready:
		return nil
	default:
		return fmt.Errorf("ticket %s: %s", outcome.Code, outcome.Kind)
	}
}

// printOutcome writes the result dialog contents as terminal text
func printOutcome(w io.Writer, o *models.CheckInOutcome) {
	color := red
	switch o.Kind {
	case models.OutcomeSuccess:
		color = green
	case models.OutcomeAlready, models.OutcomePending:
		color = yellow
	}

	fmt.Fprintf(w, "%s%s%s%s\n", bold, color, scanner.Title(o.Kind), reset)
	fmt.Fprintf(w, "  Code:     %s\n", o.Code)
	if o.Message != "" {
		fmt.Fprintf(w, "  Message:  %s\n", o.Message)
	}
	if o.Data == nil {
		return
	}
	if t := o.Data.Ticket; t != nil {
		if t.FullName != "" {
			fmt.Fprintf(w, "  Attendee: %s\n", t.FullName)
		}
		if t.CheckedInAt != "" {
			fmt.Fprintf(w, "  Checked:  %s\n", t.CheckedInAt)
		}
	}
	if e := o.Data.Event; e != nil && e.Title != "" {
		fmt.Fprintf(w, "  Event:    %s\n", e.Title)
	}
}
