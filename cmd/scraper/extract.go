package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go-contact-scraper/internal/snapshot"
)

func newExtractCommand(a *app) *cobra.Command {
	var (
		selector string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "extract <file.html>",
		Short: "Extract contacts from a saved page",
		Long: `Parses a page saved from the browser and runs the same extraction over the
element matched by --selector. Saved pages have no layout, so that element is
treated as the scrolling list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			page, err := snapshot.Parse(f)
			f.Close()
			if err != nil {
				return err
			}

			list, err := page.Container(selector)
			if err != nil {
				return err
			}

			a.cfg.TickInterval = interval
			run, err := a.newRun(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer run.close()
			if err := run.ctrl.Select(cmd.Context(), list); err != nil {
				return fmt.Errorf("select %q: %w", selector, err)
			}

			select {
			case <-run.ctrl.Done():
			case <-cmd.Context().Done():
			}
			return run.finish(run.ctrl.StopSession())
		},
	}

	cmd.Flags().StringVarP(&selector, "selector", "s", "body", "element holding the member rows")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Millisecond, "tick interval; a saved page needs no render time")
	return cmd
}
