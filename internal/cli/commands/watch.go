package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/realmweave/internal/cli/output"
	"github.com/leapstack-labs/realmweave/internal/notifier"
	"github.com/leapstack-labs/realmweave/internal/weave"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "watch <input-dir>",
		Short: "Weave a package and re-weave it whenever it changes",
		Long: `Weave <input-dir> once, then watch it and weave again after every change.
Changes are debounced by watch.debounce. Failures are reported and the
watch continues; stop it with Ctrl-C.`,
		Example: `  realmweave watch ./models
  realmweave watch ./models -o ./build/models --debounce 500ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			if out == "" {
				out = weave.DefaultOutput(args[0], cc.Cfg.OutputSuffix)
			}
			return cc.watch(cmd.Context(), args[0], out, notifier.New())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default <input-dir><output_suffix>)")
	return cmd
}

// watch weaves input into out now and after every change until ctx is
// done. Each weave is broadcast on n.
func (cc *CommandContext) watch(ctx context.Context, input, out string, n *notifier.Notifier) error {
	rec := newRecorder(cc.Cfg, cc.Logger)
	defer rec.Close()

	events := n.Subscribe()
	defer n.Unsubscribe(events)

	trigger := make(chan struct{}, 1)
	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return watchFiles(egctx, input, cc.Cfg.Watch.Debounce, trigger, cc.Logger)
	})

	eg.Go(func() error {
		for {
			report, _, err := cc.weaveOnce(egctx, rec, input, out)
			n.Broadcast(notifier.Event{Input: input, Output: out, Outcome: report.Outcome, Err: err})

			select {
			case <-egctx.Done():
				return nil
			case <-trigger:
			}
		}
	})

	eg.Go(func() error {
		for {
			select {
			case <-egctx.Done():
				return nil
			case ev := <-events:
				renderWatchEvent(cc.Renderer, ev)
			}
		}
	})

	return eg.Wait()
}

func renderWatchEvent(r *output.Renderer, ev notifier.Event) {
	if r.EffectiveMode().Structured() {
		rep := output.WeaveReport{Input: ev.Input, Output: ev.Output, Outcome: ev.Outcome, Errors: errorLines(ev.Err)}
		_, _ = r.Structured(rep)
		return
	}
	stamp := ev.At.Format(time.TimeOnly)
	switch {
	case ev.Err != nil:
		for _, line := range errorLines(ev.Err) {
			r.Error(fmt.Sprintf("%s %s", stamp, line))
		}
	case ev.Outcome == weave.OutcomeAlreadyWoven.String():
		r.Println(r.Muted(stamp + " " + ev.Input + " already woven"))
	default:
		r.Success(fmt.Sprintf("%s wove %s → %s", stamp, ev.Input, ev.Output))
	}
}

// watchFiles signals trigger after changes to dir settle for debounce.
func watchFiles(ctx context.Context, dir string, debounce time.Duration, trigger chan<- struct{}, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Only the top level is part of a module.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ignoredChange(event.Name) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(debounce, func() {
				logger.Debug("file changed, re-weaving", slog.String("file", name))
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", slog.Any("error", err))
		}
	}
}

// ignoredChange reports editor droppings that never affect a weave.
func ignoredChange(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}
