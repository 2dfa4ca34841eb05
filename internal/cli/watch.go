package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/evcraddock/nb/internal/controller"
	"github.com/evcraddock/nb/internal/visit"
)

func newWatchCmd() *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep checking for visits that need your decision",
		Long: `Reload your visits on a schedule and report completed visits that
still need your decision, and new matches. Runs until interrupted.

The schedule is a cron expression or descriptor, for example
  nb watch --schedule "@every 10m"
  nb watch --schedule "0 9 * * *"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, schedule)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "@every 5m", "cron schedule for reloading")

	return cmd
}

func runWatch(cmd *cobra.Command, schedule string) error {
	ctl, err := newController(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := newWatcher(ctl, cmd.OutOrStdout(), cmd.ErrOrStderr())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { w.check(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	w.check(ctx)
	c.Start()
	fmt.Fprintf(cmd.OutOrStdout(), "Watching visits (%s). Press Ctrl+C to stop.\n", schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// watcher reports each pending decision and each match once.
type watcher struct {
	ctl    *controller.Controller
	out    io.Writer
	errOut io.Writer

	mu       sync.Mutex
	reported map[string]bool
}

func newWatcher(ctl *controller.Controller, out, errOut io.Writer) *watcher {
	return &watcher{ctl: ctl, out: out, errOut: errOut, reported: map[string]bool{}}
}

// check reloads the list and reports what is new since the last check.
// It returns the number of lines reported.
func (w *watcher) check(ctx context.Context) int {
	if err := w.ctl.Load(ctx); err != nil {
		fmt.Fprintf(w.errOut, "warning: %s\n", w.ctl.Banner())
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	role := w.ctl.Role()
	for _, v := range w.ctl.Store().Visits() {
		switch {
		case visit.IsMatch(v):
			if w.mark("match:" + v.ID) {
				fmt.Fprintf(w.out, "★ Visit %s to %s is a match.\n", v.ID, v.ListingID)
				n++
			}
		case visit.NeedsDecision(v, role):
			if w.mark("pending:" + v.ID) {
				fmt.Fprintf(w.out, "! Visit %s to %s needs your decision: nb decide %s <interested|not_interested|undecided>\n",
					v.ID, v.ListingID, v.ID)
				n++
			}
		}
	}
	return n
}

// mark records key and reports whether it was new. Caller holds mu.
func (w *watcher) mark(key string) bool {
	if w.reported[key] {
		return false
	}
	w.reported[key] = true
	return true
}
