package reconciler

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/spf13/afero"

	"github.com/capcom6/perm-keeper/internal/enforcer"
	"github.com/capcom6/perm-keeper/internal/ignore"
	"github.com/capcom6/perm-keeper/internal/walker"
	"github.com/capcom6/perm-keeper/internal/watcher"
)

// Reconciler drives paths toward the desired permission mode: a full sweep
// over every watch root plus a steady-state loop over the change event
// stream. A single goroutine consumes events in arrival order; enforcement
// is idempotent, so at-least-once per drift is all that is required.
type Reconciler struct {
	Roots []string

	fsys     afero.Fs
	matcher  *ignore.Matcher
	enforcer *enforcer.Enforcer
}

func New(fsys afero.Fs, roots []string, matcher *ignore.Matcher, enf *enforcer.Enforcer) *Reconciler {
	return &Reconciler{
		Roots:    roots,
		fsys:     fsys,
		matcher:  matcher,
		enforcer: enf,
	}
}

// Sweep walks every root and enforces the desired mode on each non-ignored
// path. Per-path and per-root failures are logged and the sweep continues;
// only context cancellation makes it return early.
func (r *Reconciler) Sweep(ctx context.Context) error {
	log.Printf("[INFO] sweep started")

	var changed, failed int
	for _, root := range r.Roots {
		err := walker.Walk(r.fsys, root, r.matcher, func(path string, _ fs.FileInfo) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			ch, fl := r.apply(path)
			if ch {
				changed++
			}
			if fl {
				failed++
			}

			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			log.Printf("[WARN] can't sweep %s: %s", root, err)
		}
	}

	log.Printf("[INFO] sweep finished: %d changed, %d failed", changed, failed)

	return nil
}

// Run consumes the event stream until ctx is done or the stream closes. A
// positive interval schedules periodic backstop sweeps.
func (r *Reconciler) Run(ctx context.Context, events watcher.EventsChannel, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return ErrStreamClosed
			}
			r.handle(event)
		case <-tick:
			log.Printf("[INFO] running scheduled check")
			if err := r.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					// shutdown mid-sweep is not an error
					return nil
				}
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Reconciler) handle(event watcher.Event) {
	if r.matcher.Match(event.AbsPath) {
		log.Printf("[DEBUG] ignored: %s", event.AbsPath)
		return
	}

	if event.Kind == watcher.EventRemoved {
		// can't chmod what is gone
		log.Printf("[DEBUG] removed: %s", event.AbsPath)
		return
	}

	r.apply(event.AbsPath)
}

// apply runs a single enforcement and logs the outcome. No per-path failure
// is fatal: vanished paths are expected event races, everything else is a
// warning.
func (r *Reconciler) apply(path string) (changed, failed bool) {
	outcome, err := r.enforcer.Enforce(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("[DEBUG] vanished: %s", path)
	case errors.Is(err, fs.ErrPermission):
		log.Printf("[WARN] no permission to change %s: %s", path, err)
		failed = true
	case err != nil:
		log.Printf("[WARN] can't enforce %s: %s", path, err)
		failed = true
	case outcome.Changed:
		log.Printf("[INFO] chmod %s: %03o -> %03o", path, outcome.From, outcome.To)
		changed = true
	}

	return changed, failed
}
