// Package inbox implements the share-request notification panel: a polling
// working set of pending requests with accept/reject actions.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pantrylink/pantrylink-go/internal/logutil"
	"github.com/pantrylink/pantrylink-go/internal/metrics"
	"github.com/pantrylink/pantrylink-go/internal/share"
)

// State is the inbox lifecycle state.
type State string

const (
	// StateIdle: panel closed, no network activity.
	StateIdle State = "idle"
	// StateLoading: a fetch is underway and no list has resolved yet.
	StateLoading State = "loading"
	// StateLoaded: the working set reflects the last successful fetch.
	StateLoaded State = "loaded"
	// StateError: the last fetch failed; the previous list, if any, is kept.
	StateError State = "error"
)

var (
	ErrClosed          = errors.New("inbox is closed")
	ErrAlreadyOpen     = errors.New("inbox is already open")
	ErrRespondInFlight = errors.New("a respond call is already in flight for this request")
)

// Service is the client surface the inbox needs.
type Service interface {
	ReceivedRequests(ctx context.Context) ([]share.Request, error)
	Respond(ctx context.Context, requestID string, action share.Action) (*share.RespondResult, error)
}

// Snapshot is an immutable view of the inbox handed to observers. Requests
// is the stale-but-visible working set even when State is StateError; Err
// distinguishes "no pending requests" from "could not check for pending
// requests".
type Snapshot struct {
	State    State
	Requests []share.Request
	Err      error
}

// Inbox polls the share service while open and drives respond actions with a
// per-request single-flight guard. All exported methods are safe for
// concurrent use.
type Inbox struct {
	svc      Service
	interval time.Duration
	logger   *slog.Logger
	onChange func(Snapshot)

	mu         sync.Mutex
	open       bool
	generation uint64 // invalidates fetches resolving after Close
	cancel     context.CancelFunc
	state      State
	requests   []share.Request
	lastErr    error
	inFlight   map[string]bool // respond guard, keyed by request id
	removed    map[string]bool // optimistically removed ids a racing poll must not re-add
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ib *Inbox) { ib.logger = l }
}

// WithOnChange registers a callback invoked with a fresh Snapshot after
// every state change. The callback runs outside the inbox lock.
func WithOnChange(fn func(Snapshot)) Option {
	return func(ib *Inbox) { ib.onChange = fn }
}

// New creates a closed inbox. Construction performs no network calls; the
// first fetch happens on Open.
func New(svc Service, interval time.Duration, opts ...Option) *Inbox {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ib := &Inbox{
		svc:      svc,
		interval: interval,
		state:    StateIdle,
		inFlight: make(map[string]bool),
		removed:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(ib)
	}
	ib.logger = logutil.NoopIfNil(ib.logger)
	return ib
}

// Open transitions the inbox into its visible state: an immediate fetch
// followed by interval polling until Close. Returns ErrAlreadyOpen when the
// inbox is already open.
func (ib *Inbox) Open(ctx context.Context) error {
	ib.mu.Lock()
	if ib.open {
		ib.mu.Unlock()
		return ErrAlreadyOpen
	}

	pollCtx, cancel := context.WithCancel(ctx)
	ib.open = true
	ib.cancel = cancel
	ib.generation++
	gen := ib.generation
	ib.state = StateLoading
	ib.requests = nil
	ib.lastErr = nil
	ib.removed = make(map[string]bool)
	ib.mu.Unlock()

	ib.notify()
	go ib.poll(pollCtx, gen)
	return nil
}

// Close stops polling immediately. A fetch already in flight is discarded
// when it resolves. Safe to call when already closed.
func (ib *Inbox) Close() {
	ib.mu.Lock()
	if !ib.open {
		ib.mu.Unlock()
		return
	}
	ib.open = false
	ib.generation++
	cancel := ib.cancel
	ib.cancel = nil
	ib.state = StateIdle
	ib.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	ib.notify()
}

// Snapshot returns a copy of the current view.
func (ib *Inbox) Snapshot() Snapshot {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return ib.snapshotLocked()
}

// RespondInFlight reports whether a respond call is outstanding for id.
// UIs use this to disable the controls for that request only.
func (ib *Inbox) RespondInFlight(id string) bool {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return ib.inFlight[id]
}

// Respond accepts or rejects request id. While a respond for id is
// outstanding, further calls for the same id fail with ErrRespondInFlight
// and issue no network call; responds for distinct ids proceed
// independently. On success the request leaves the working set immediately;
// on failure it stays, unchanged, and the error carries the notification
// text.
func (ib *Inbox) Respond(ctx context.Context, id string, action share.Action) error {
	ib.mu.Lock()
	if !ib.open {
		ib.mu.Unlock()
		return ErrClosed
	}
	if ib.inFlight[id] {
		ib.mu.Unlock()
		metrics.RespondInFlightRejected.Inc()
		return ErrRespondInFlight
	}
	ib.inFlight[id] = true
	ib.mu.Unlock()

	_, err := ib.svc.Respond(ctx, id, action)

	ib.mu.Lock()
	delete(ib.inFlight, id)
	if err != nil {
		ib.mu.Unlock()
		ib.logger.Warn("respond failed", "id", id, "action", action, "error", err)
		ib.notify()
		return err
	}

	// Optimistic removal; the tombstone keeps a racing poll tick from
	// re-adding the request before the service reflects the transition.
	ib.removed[id] = true
	kept := ib.requests[:0:0]
	for _, r := range ib.requests {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	ib.requests = kept
	ib.mu.Unlock()

	ib.logger.Info("share request resolved", "id", id, "action", action)
	ib.notify()
	return nil
}

// poll runs the refresh loop until the context is cancelled.
func (ib *Inbox) poll(ctx context.Context, gen uint64) {
	ib.refresh(ctx, gen)

	ticker := time.NewTicker(ib.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ib.refresh(ctx, gen)
		}
	}
}

// refresh fetches the pending set and folds it into the working state. The
// currently displayed list is kept until the new one resolves, and a result
// arriving after Close (or for a previous open) is discarded.
func (ib *Inbox) refresh(ctx context.Context, gen uint64) {
	requests, err := ib.svc.ReceivedRequests(ctx)

	ib.mu.Lock()
	if !ib.open || ib.generation != gen {
		ib.mu.Unlock()
		metrics.PollCyclesTotal.WithLabelValues("discarded").Inc()
		return
	}

	if err != nil {
		ib.state = StateError
		ib.lastErr = err
		ib.mu.Unlock()
		metrics.PollCyclesTotal.WithLabelValues("error").Inc()
		ib.logger.Warn("inbox refresh failed", "error", err)
		ib.notify()
		return
	}

	// Apply tombstones, and retire the ones the service no longer returns.
	returned := make(map[string]bool, len(requests))
	kept := requests[:0:0]
	for _, r := range requests {
		returned[r.ID] = true
		if !ib.removed[r.ID] {
			kept = append(kept, r)
		}
	}
	for id := range ib.removed {
		if !returned[id] {
			delete(ib.removed, id)
		}
	}

	ib.state = StateLoaded
	ib.requests = kept
	ib.lastErr = nil
	ib.mu.Unlock()

	metrics.PollCyclesTotal.WithLabelValues("ok").Inc()
	ib.notify()
}

// snapshotLocked builds a Snapshot copy; ib.mu must be held.
func (ib *Inbox) snapshotLocked() Snapshot {
	reqs := make([]share.Request, len(ib.requests))
	copy(reqs, ib.requests)
	return Snapshot{State: ib.state, Requests: reqs, Err: ib.lastErr}
}

// notify invokes the observer callback outside the lock.
func (ib *Inbox) notify() {
	if ib.onChange == nil {
		return
	}
	ib.mu.Lock()
	snap := ib.snapshotLocked()
	ib.mu.Unlock()
	ib.onChange(snap)
}
