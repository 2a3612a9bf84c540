package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is where a source is in its check cycle.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateUnchanged
	StateChangedNotified
	StateCheckFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateUnchanged:
		return "unchanged"
	case StateChangedNotified:
		return "changed"
	case StateCheckFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChangeEvent reports new content for a linked source.
type ChangeEvent struct {
	SourceID   string    `json:"sourceId"`
	NewHash    string    `json:"newHash"`
	Path       string    `json:"path"`
	DetectedAt time.Time `json:"detectedAt"`
}

// Handler receives change events. It runs on the source's timer goroutine
// and may call back into the Watcher, except Stop.
type Handler func(ChangeEvent)

// Status is the observable state of one source.
type Status struct {
	State         State
	LastOutcome   State
	LastError     error
	LastCheckedAt time.Time
}

// Watcher checks every linked source on its own timer and emits a
// ChangeEvent when a source's content hash moves to a value not yet
// imported or reported.
type Watcher struct {
	repo    Repository
	fs      FileSystem
	log     zerolog.Logger
	now     func() time.Time
	handler Handler

	// minInterval floors per-source intervals.
	minInterval time.Duration

	mu       sync.Mutex
	runCtx   context.Context
	stopRun  context.CancelFunc
	stopped  bool
	timers   map[string]context.CancelFunc
	statuses map[string]Status
	locks    map[string]*sync.Mutex
	wg       sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithLogger(log zerolog.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

func WithHandler(h Handler) Option {
	return func(w *Watcher) { w.handler = h }
}

// New returns a stopped Watcher.
func New(repo Repository, fs FileSystem, opts ...Option) *Watcher {
	w := &Watcher{
		repo:        repo,
		fs:          fs,
		log:         zerolog.Nop(),
		now:         time.Now,
		minInterval: MinInterval,
		timers:      make(map[string]context.CancelFunc),
		statuses:    make(map[string]Status),
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With().Str("component", "watcher").Logger()
	return w
}

// Start reconciles persisted hashes with the current content, without
// emitting events, then starts one timer per source. When the repository
// is a Notifier, external changes reschedule all timers.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.runCtx != nil {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}
	w.runCtx, w.stopRun = context.WithCancel(ctx)
	runCtx := w.runCtx
	w.mu.Unlock()

	if err := w.Reconcile(runCtx); err != nil {
		w.Stop()
		return err
	}
	if err := w.Reschedule(runCtx); err != nil {
		w.Stop()
		return err
	}

	if n, ok := w.repo.(Notifier); ok {
		w.mu.Lock()
		if !w.stopped {
			w.wg.Add(1)
			go w.follow(runCtx, n.Changes())
		}
		w.mu.Unlock()
	}
	return nil
}

func (w *Watcher) follow(ctx context.Context, changes <-chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			w.log.Debug().Msg("store changed externally, rescheduling")
			if err := w.Reschedule(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn().Err(err).Msg("failed to reschedule after external change")
			}
		}
	}
}

// Stop cancels every timer and waits for them to exit. A stopped Watcher
// cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	if w.stopRun != nil {
		w.stopRun()
	}
	for id, cancel := range w.timers {
		cancel()
		delete(w.timers, id)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// Reconcile aligns FileHash and LastNotifiedHash of every source with its
// current content. No events are emitted. Sources that cannot be read are
// left alone.
func (w *Watcher) Reconcile(ctx context.Context) error {
	sources, err := w.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list linked sources: %w", err)
	}
	for _, src := range sources {
		lock := w.sourceLock(src.ID)
		lock.Lock()
		w.reconcileOne(ctx, src.ID)
		lock.Unlock()
	}
	return nil
}

func (w *Watcher) reconcileOne(ctx context.Context, id string) {
	src, err := w.repo.Get(ctx, id)
	if err != nil {
		return
	}
	hash, path, err := w.resolve(ctx, src)
	if err != nil {
		w.log.Debug().Err(err).Str("source", id).Msg("reconcile skipped")
		return
	}
	src.FilePath = path
	src.FileHash = hash
	src.LastNotifiedHash = hash
	src.LastCheckedAt = w.now()
	if err := w.repo.Update(ctx, src); err != nil {
		w.log.Debug().Err(err).Str("source", id).Msg("failed to persist reconciled source")
	}
}

// Reschedule drops every timer and starts one per persisted source. Old
// timers are cancelled but not waited for, so it is safe to call from a
// Handler.
func (w *Watcher) Reschedule(ctx context.Context) error {
	sources, err := w.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list linked sources: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.runCtx == nil {
		return nil
	}
	for id, cancel := range w.timers {
		cancel()
		delete(w.timers, id)
	}
	for _, src := range sources {
		w.scheduleLocked(src)
	}
	return nil
}

func (w *Watcher) scheduleLocked(src *LinkedSource) {
	if cancel, ok := w.timers[src.ID]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(w.runCtx)
	w.timers[src.ID] = cancel
	if _, ok := w.statuses[src.ID]; !ok {
		w.statuses[src.ID] = Status{State: StateIdle}
	}
	w.wg.Add(1)
	go w.loop(ctx, src.ID, clampInterval(src.IntervalMs, w.minInterval))
}

func (w *Watcher) loop(ctx context.Context, id string, interval time.Duration) {
	defer w.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx, id)
		}
	}
}

// Check runs one check of source id and returns its outcome. Failures are
// logged and swallowed.
func (w *Watcher) Check(ctx context.Context, id string) State {
	lock := w.sourceLock(id)
	lock.Lock()
	w.setStatus(id, StateChecking, StateIdle, nil)
	outcome, ev, err := w.check(ctx, id)
	if errors.Is(err, ErrNotFound) {
		// Unlinked while the check ran.
		w.dropStatus(id)
		lock.Unlock()
		w.log.Debug().Str("source", id).Msg("source removed during check")
		return StateIdle
	}
	w.setStatus(id, StateIdle, outcome, err)
	lock.Unlock()

	if err != nil {
		w.log.Debug().Err(err).Str("source", id).Msg("check failed")
	}
	if ev != nil {
		w.log.Info().Str("source", id).Str("hash", ev.NewHash).Msg("linked source changed")
		if w.handler != nil {
			w.handler(*ev)
		}
	}
	return outcome
}

func (w *Watcher) check(ctx context.Context, id string) (State, *ChangeEvent, error) {
	// Always re-read: another process may have updated the record.
	src, err := w.repo.Get(ctx, id)
	if err != nil {
		return StateCheckFailed, nil, err
	}
	hash, path, err := w.resolve(ctx, src)
	if err != nil {
		return StateCheckFailed, nil, err
	}

	now := w.now()
	src.FilePath = path
	src.LastCheckedAt = now

	outcome := StateUnchanged
	var ev *ChangeEvent
	if hash != src.FileHash && hash != src.LastNotifiedHash {
		src.LastNotifiedHash = hash
		outcome = StateChangedNotified
		ev = &ChangeEvent{SourceID: src.ID, NewHash: hash, Path: path, DetectedAt: now}
	}
	if err := w.repo.Update(ctx, src); err != nil {
		if errors.Is(err, ErrNotFound) {
			return StateIdle, nil, err
		}
		return StateCheckFailed, nil, fmt.Errorf("failed to save linked source: %w", err)
	}
	return outcome, ev, nil
}

// resolve finds the content path of src and hashes it.
func (w *Watcher) resolve(ctx context.Context, src *LinkedSource) (hash, path string, err error) {
	path = src.FilePath
	if src.URLBased() {
		d, err := w.fs.FindLatestXMLDownload(ctx, src.LinkedAt, src.DownloadPattern)
		if err != nil {
			return "", "", err
		}
		path = d.Path
	}
	if path == "" {
		return "", "", ErrNoDownload
	}
	info, err := w.fs.FileInfo(ctx, path)
	if err != nil {
		return "", "", err
	}
	if info.IsDir {
		return "", "", fmt.Errorf("%s is a directory", path)
	}
	hash, err = w.fs.FileHash(ctx, path)
	if err != nil {
		return "", "", err
	}
	if hash == "" {
		return "", "", ErrHashUnavailable
	}
	return hash, path, nil
}

// Link validates and stores src, taking its initial hash when the content
// is already reachable, and schedules it when the Watcher is running.
func (w *Watcher) Link(ctx context.Context, src LinkedSource) (*LinkedSource, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if src.ID == "" {
		src.ID = src.StableID()
	}
	if src.LinkedAt.IsZero() {
		src.LinkedAt = w.now()
	}
	if src.IntervalMs <= 0 {
		src.SetInterval(DefaultInterval)
	}
	if hash, path, err := w.resolve(ctx, &src); err == nil {
		src.FilePath = path
		src.FileHash = hash
		src.LastNotifiedHash = hash
	} else {
		w.log.Debug().Err(err).Str("source", src.ID).Msg("no initial hash")
	}
	if err := w.repo.Put(ctx, &src); err != nil {
		return nil, fmt.Errorf("failed to save linked source: %w", err)
	}

	w.mu.Lock()
	if !w.stopped && w.runCtx != nil {
		w.scheduleLocked(&src)
	}
	w.mu.Unlock()
	return &src, nil
}

// Unlink removes a source and stops its timer.
func (w *Watcher) Unlink(ctx context.Context, id string) error {
	w.mu.Lock()
	if cancel, ok := w.timers[id]; ok {
		cancel()
		delete(w.timers, id)
	}
	w.mu.Unlock()

	lock := w.sourceLock(id)
	lock.Lock()
	defer lock.Unlock()
	if err := w.repo.Remove(ctx, id); err != nil {
		return err
	}
	w.dropStatus(id)
	return nil
}

// Acknowledge records hash as imported. An empty hash means the current
// content.
func (w *Watcher) Acknowledge(ctx context.Context, id, hash string) error {
	lock := w.sourceLock(id)
	lock.Lock()
	defer lock.Unlock()

	src, err := w.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if hash == "" {
		h, path, err := w.resolve(ctx, src)
		if err != nil {
			return fmt.Errorf("failed to hash linked source: %w", err)
		}
		hash = h
		src.FilePath = path
	}
	src.FileHash = hash
	src.LastNotifiedHash = hash
	return w.repo.Update(ctx, src)
}

// Content reads the current content of a changed source through the
// watcher's FileSystem.
func (w *Watcher) Content(ctx context.Context, ev ChangeEvent) ([]byte, error) {
	if ev.Path == "" {
		return nil, ErrNoDownload
	}
	return w.fs.ReadFile(ctx, ev.Path)
}

// TriggerDownload opens a URL-based source in the browser so a fresh copy
// lands in the downloads directory.
func (w *Watcher) TriggerDownload(ctx context.Context, id string) error {
	src, err := w.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !src.URLBased() {
		return fmt.Errorf("linked source %s has no URL", id)
	}
	return w.fs.OpenExternal(ctx, src.SourceURL)
}

// Status returns the state of source id.
func (w *Watcher) Status(id string) (Status, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.statuses[id]
	return st, ok
}

// Scheduled returns the ids that currently have a timer.
func (w *Watcher) Scheduled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.timers))
	for id := range w.timers {
		ids = append(ids, id)
	}
	return ids
}

func (w *Watcher) setStatus(id string, state, outcome State, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := w.statuses[id]
	st.State = state
	if state == StateIdle {
		st.LastOutcome = outcome
		st.LastError = err
		if err == nil {
			st.LastCheckedAt = w.now()
		}
	}
	w.statuses[id] = st
}

func (w *Watcher) dropStatus(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.statuses, id)
}

func (w *Watcher) sourceLock(id string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[id]
	if !ok {
		l = &sync.Mutex{}
		w.locks[id] = l
	}
	return l
}
