package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-contact-scraper/internal/browser"
	"go-contact-scraper/internal/dom"
	"go-contact-scraper/internal/session"
)

func newScrapeCommand(a *app) *cobra.Command {
	var (
		url      string
		selector string
		headless bool
		robots   bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Open the target page in Chrome and scrape the list you click",
		Long: `Opens TARGET_URL in Chrome. Hover the member list and click it; the list
is scrolled until it stops growing and the contacts are exported. Press Escape
in the page to cancel selection, or Ctrl-C here to stop early and keep what
was collected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("url") {
				cfg.TargetURL = url
			}
			if cmd.Flags().Changed("selector") {
				cfg.ContainerSelector = selector
			}
			if cmd.Flags().Changed("headless") {
				cfg.Headless = headless
			}
			if cmd.Flags().Changed("robots") {
				cfg.RespectRobots = robots
			}
			return runScrape(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "page to open (TARGET_URL)")
	cmd.Flags().StringVarP(&selector, "selector", "s", "", "click this element instead of waiting for a pick (CONTAINER_SELECTOR)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run Chrome headless; needs --selector (HEADLESS)")
	cmd.Flags().BoolVar(&robots, "robots", false, "refuse pages disallowed by robots.txt (RESPECT_ROBOTS)")
	return cmd
}

func runScrape(parent context.Context, a *app) error {
	cfg, log := a.cfg, a.log
	if cfg.Headless && cfg.ContainerSelector == "" {
		return errors.New("headless mode cannot pick interactively; set --selector")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RespectRobots && !browser.NewHostGate(cfg.UserAgent, log).Allowed(ctx, cfg.TargetURL) {
		return fmt.Errorf("robots.txt disallows %s for %s", cfg.TargetURL, cfg.UserAgent)
	}

	b, err := browser.Launch(parent, browser.Options{
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
	}, log)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Navigate(ctx, cfg.TargetURL); err != nil {
		return err
	}

	run, err := a.newRun(parent, b)
	if err != nil {
		return err
	}
	defer run.close()

	interactive := cfg.ContainerSelector == ""
	if interactive {
		if err := run.ctrl.EnterSelectionMode(ctx); err != nil {
			return err
		}
		log.Info(run.ctrl.Status())
	} else {
		target, err := findTarget(ctx, b, cfg.ContainerSelector)
		if err != nil {
			return err
		}
		if err := run.ctrl.Select(ctx, target); err != nil {
			return err
		}
	}

	res, err := run.await(ctx, interactive)
	if err != nil {
		return err
	}
	return run.finish(res)
}

func findTarget(ctx context.Context, b *browser.Browser, selector string) (dom.Element, error) {
	if err := b.WaitVisible(ctx, selector, 30*time.Second); err != nil {
		return nil, err
	}
	return b.Find(ctx, selector)
}

// await blocks until the session finishes, the user cancels selection, or ctx
// ends. Interrupting a scrape keeps the records collected so far.
func (r *run) await(ctx context.Context, interactive bool) (session.Result, error) {
	poll := time.NewTicker(200 * time.Millisecond)
	defer poll.Stop()

	for {
		switch r.ctrl.State() {
		case session.Scraping, session.Stopped:
			select {
			case <-r.ctrl.Done():
			case <-ctx.Done():
				r.log.Info("Interrupted, stopping")
			}
			return r.ctrl.StopSession(), nil

		case session.Idle:
			err := r.ctrl.Err()
			if interactive && errors.Is(err, session.ErrNoScrollableTarget) && ctx.Err() == nil {
				r.log.Warn(r.ctrl.Status())
				if err := r.ctrl.EnterSelectionMode(ctx); err != nil {
					return session.Result{}, err
				}
				continue
			}
			if err == nil {
				err = errors.New(r.ctrl.Status())
			}
			return session.Result{}, err
		}

		select {
		case <-ctx.Done():
			r.ctrl.StopSession()
			return session.Result{}, fmt.Errorf("interrupted before a list was picked: %w", ctx.Err())
		case <-poll.C:
		}
	}
}
