package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"vitalguard/internal/geo"
	"vitalguard/internal/insight"
	"vitalguard/internal/models"
	"vitalguard/internal/notify"
	"vitalguard/internal/vitals"

	"go.uber.org/zap"
)

var (
	ErrInvalidReason     = errors.New("invalid sos reason")
	ErrEmergencyActive   = errors.New("emergency session in progress")
	ErrNotFound          = errors.New("not found")
	ErrInvalidMedication = errors.New("invalid medication")
	ErrInvalidContact    = errors.New("invalid contact")
	ErrNoSampleSink      = errors.New("vitals source does not accept ingested samples")
)

// Persister profile store write-back port
type Persister interface {
	SaveLogEntries(ctx context.Context, patientID string, entries []models.EmergencyLogEntry) error
	SaveMedications(ctx context.Context, patientID string, meds []models.Medication) error
	SaveContact(ctx context.Context, patientID string, contact models.EmergencyContact) error
	DeleteContact(ctx context.Context, patientID, contactID string) error
	SaveProfile(ctx context.Context, profile models.PatientProfile) error
}

// Mirror realtime snapshot publisher for sidecar consumers
type Mirror interface {
	StoreSnapshot(ctx context.Context, state models.PatientState) error
	AppendLogEntries(ctx context.Context, patientID string, entries []models.EmergencyLogEntry) error
}

// SampleSink a vitals source that accepts externally ingested samples
type SampleSink interface {
	Push(sample models.VitalsSample)
}

// Options cadences and counts
type Options struct {
	VitalsInterval      time.Duration
	ComplianceInterval  time.Duration
	CountdownInterval   time.Duration
	SOSCountdown        int
	TestCountdown       int
	HistorySize         int
	InsightDelay        time.Duration
	IOTimeout           time.Duration // persistence, mirror, insight and geocode calls
	ResetRemindersDaily bool
	DetectorEnabled     bool
}

// DefaultOptions reference cadences
func DefaultOptions() Options {
	return Options{
		VitalsInterval:     2 * time.Second,
		ComplianceInterval: 10 * time.Second,
		CountdownInterval:  time.Second,
		SOSCountdown:       10,
		TestCountdown:      5,
		HistorySize:        20,
		InsightDelay:       time.Second,
		IOTimeout:          5 * time.Second,
	}
}

// Deps collaborators; only Notifier is required
type Deps struct {
	Notifier  notify.Notifier
	Toasts    *notify.ToastQueue
	Source    vitals.Source
	Detector  vitals.Detector
	Insight   insight.Provider
	Geocoder  geo.Geocoder
	Persister Persister
	Mirror    Mirror
}

// Option engine construction option
type Option func(*Engine)

// WithClock overrides the wall clock used for timestamps and compliance
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine vitals and emergency orchestration. All patient state lives in one
// cell guarded by mu; every operation is a read-modify-write against it.
type Engine struct {
	mu sync.Mutex
	st *state

	opts   Options
	deps   Deps
	now    func() time.Time
	logger *zap.Logger

	fx *effectQueue // notifications, in commit order
	io *effectQueue // persistence and mirror, in commit order

	countdownWake chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	loops  sync.WaitGroup

	done    chan struct{}
	workers sync.WaitGroup

	asyncMu sync.Mutex // guards closed and async.Add against Close
	closed  bool
	async   sync.WaitGroup
}

// New creates an engine seeded with initial and starts its effect workers.
// The monitoring timers are armed separately with Start.
func New(initial models.PatientState, opts Options, deps Deps, logger *zap.Logger, options ...Option) *Engine {
	defaults := DefaultOptions()
	if opts.VitalsInterval <= 0 {
		opts.VitalsInterval = defaults.VitalsInterval
	}
	if opts.ComplianceInterval <= 0 {
		opts.ComplianceInterval = defaults.ComplianceInterval
	}
	if opts.CountdownInterval <= 0 {
		opts.CountdownInterval = defaults.CountdownInterval
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaults.HistorySize
	}
	if opts.IOTimeout <= 0 {
		opts.IOTimeout = defaults.IOTimeout
	}
	if opts.SOSCountdown <= 0 {
		opts.SOSCountdown = defaults.SOSCountdown
	}
	if opts.TestCountdown <= 0 {
		opts.TestCountdown = defaults.TestCountdown
	}
	if deps.Source == nil {
		deps.Source = vitals.NewGenerator(0)
	}
	if deps.Detector == nil {
		deps.Detector = vitals.DefaultThresholds()
	}

	e := &Engine{
		st:            newState(initial, opts.HistorySize),
		opts:          opts,
		deps:          deps,
		now:           time.Now,
		logger:        logger,
		fx:            newEffectQueue(),
		io:            newEffectQueue(),
		countdownWake: make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}

	e.workers.Add(2)
	go e.runWorker(e.fx)
	go e.runWorker(e.io)

	e.logger.Info("Engine created",
		zap.String("patient_id", initial.Profile.ID),
		zap.String("status", string(e.st.status)),
	)
	return e
}

// update runs fn against the live state under the lock and queues the
// effects it returns. Queueing under the lock keeps commit order.
func (e *Engine) update(fn func(s *state) []Effect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueue(fn(e.st)...)
}

// emit queues effects that carry no state change
func (e *Engine) emit(effects ...Effect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueue(effects...)
}

func (e *Engine) enqueue(effects ...Effect) {
	var fx, io []Effect
	for _, effect := range effects {
		if isIO(effect) {
			io = append(io, effect)
		} else {
			fx = append(fx, effect)
		}
	}
	e.fx.push(fx...)
	e.io.push(io...)
}

// Snapshot deep copy of the current patient state
func (e *Engine) Snapshot() models.PatientState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.snapshot()
}

// History points of one metric, oldest first
func (e *Engine) History(m models.Metric) []models.VitalsPoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.history.Series(m)
}

// Toasts pending in-app notifications, newest first
func (e *Engine) Toasts() []models.Notification {
	if e.deps.Toasts == nil {
		return nil
	}
	return e.deps.Toasts.List()
}

// Start arms the vitals, compliance and countdown timers together. A
// second Start while running is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.loops.Add(3)
	go e.tickLoop(ctx, "vitals", e.opts.VitalsInterval, false, e.TickVitals)
	go e.tickLoop(ctx, "compliance", e.opts.ComplianceInterval, true, e.RunCompliance)
	go e.countdownLoop(ctx)

	// re-arm a countdown left open by a previous Stop
	e.armCountdown()

	e.logger.Info("Monitoring started",
		zap.Duration("vitals_interval", e.opts.VitalsInterval),
		zap.Duration("compliance_interval", e.opts.ComplianceInterval),
	)
}

// Stop tears down all three timers and waits for them to exit
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.loops.Wait()
	e.cancel = nil

	e.logger.Info("Monitoring stopped")
}

// Running reports whether the timers are armed
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.cancel != nil
}

// Close stops the timers, flushes queued effects and waits for in-flight
// async work
func (e *Engine) Close() {
	e.Stop()
	e.asyncMu.Lock()
	if !e.closed {
		e.closed = true
		close(e.done)
	}
	e.asyncMu.Unlock()
	e.workers.Wait()
	e.async.Wait()
}

// beginAsync registers one async task; false once Close has started
func (e *Engine) beginAsync() bool {
	e.asyncMu.Lock()
	defer e.asyncMu.Unlock()
	if e.closed {
		return false
	}
	e.async.Add(1)
	return true
}

func (e *Engine) tickLoop(ctx context.Context, name string, interval time.Duration, immediate bool, tick func()) {
	defer e.loops.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		e.safely(name, tick)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.safely(name, tick)
		}
	}
}

// countdownLoop ticks only while an open session has time left
func (e *Engine) countdownLoop(ctx context.Context) {
	defer e.loops.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.countdownWake:
		}

		ticker := time.NewTicker(e.opts.CountdownInterval)
		for e.countdownPending() {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				e.safely("countdown", func() { e.TickCountdown() })
			}
		}
		ticker.Stop()
	}
}

func (e *Engine) countdownPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.session != nil && e.st.session.Countdown > 0
}

func (e *Engine) armCountdown() {
	select {
	case e.countdownWake <- struct{}{}:
	default:
	}
}

// safely keeps a panicking tick from halting its scheduler
func (e *Engine) safely(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Tick handler panicked",
				zap.String("tick", name),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

// goAsync runs fn off the caller's goroutine; it is skipped after Close
func (e *Engine) goAsync(name string, fn func(ctx context.Context)) {
	if !e.beginAsync() {
		return
	}
	go func() {
		defer e.async.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.IOTimeout)
		defer cancel()
		e.safely(name, func() { fn(ctx) })
	}()
}
