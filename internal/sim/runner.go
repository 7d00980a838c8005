package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/destruction"
	"voxeldestruct/internal/logging"
	"voxeldestruct/internal/voxel"
)

type tickerFactory func(time.Duration) (<-chan time.Time, func())

func defaultTickerFactory() tickerFactory {
	return func(d time.Duration) (<-chan time.Time, func()) {
		ticker := time.NewTicker(d)
		return ticker.C, ticker.Stop
	}
}

type Option func(*Runner)

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithSink receives a record for every completed event.
func WithSink(sink destruction.EventSink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithStart sets the simulated clock's starting time.
func WithStart(t time.Time) Option {
	return func(r *Runner) {
		r.start = t
	}
}

// WithDeltaHandler is called with each tick's chunk deltas.
func WithDeltaHandler(fn func([]ChunkDelta)) Option {
	return func(r *Runner) {
		r.onDelta = fn
	}
}

func withTickerFactory(f tickerFactory) Option {
	return func(r *Runner) {
		r.newTicker = f
	}
}

// TickReport summarises one Step.
type TickReport struct {
	Tick      uint64
	Fired     []string
	Destroyed int
	Completed int
	Active    int
	Deltas    []ChunkDelta
}

// Runner drives a destruction System against a voxel store on a fixed
// simulated tick.
type Runner struct {
	cfg   *config.Config
	store *voxel.Store
	sys   *destruction.System
	clock *Clock
	log   logrus.FieldLogger
	sink  destruction.EventSink
	start time.Time

	tick       time.Duration
	ticks      uint64
	idle       bool
	structures []*Structure
	byID       map[string]*Structure
	blasts     []blast
	nextBlast  int

	inputMu sync.Mutex
	players []mgl32.Vec3
	signals map[string]bool

	deltas    *deltaAccumulator
	deltaSeq  uint64
	onDelta   func([]ChunkDelta)
	newTicker tickerFactory
}

// New generates every scenario structure, stamps it into store and
// schedules the configured blasts.
func New(cfg *config.Config, store *voxel.Store, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	r := &Runner{
		cfg:       cfg,
		store:     store,
		log:       logging.Discard(),
		start:     time.Now().UTC(),
		tick:      cfg.Simulation.TickRate.Duration(),
		byID:      make(map[string]*Structure),
		signals:   make(map[string]bool),
		deltas:    newDeltaAccumulator(),
		newTicker: defaultTickerFactory(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tick <= 0 {
		r.tick = 16 * time.Millisecond
	}
	r.clock = NewClock(r.start)
	r.sys = destruction.New(cfg.Destruction,
		destruction.WithLogger(r.log),
		destruction.WithClock(r.clock.Now),
		destruction.WithSink(r.sink),
	)

	for _, spec := range cfg.Scenario.Structures {
		if _, dup := r.byID[spec.ID]; dup {
			return nil, fmt.Errorf("structure %s: duplicate id", spec.ID)
		}
		params, err := structureParams(spec)
		if err != nil {
			return nil, err
		}
		env, err := r.sys.GenerateDestructibleEnvironment(params)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", spec.ID, err)
		}
		if err := env.Stamp(store); err != nil {
			return nil, err
		}
		st := &Structure{Spec: spec, Env: env}
		r.structures = append(r.structures, st)
		r.byID[spec.ID] = st
		r.log.WithFields(logrus.Fields{
			"structure": spec.ID,
			"type":      env.Type.String(),
			"voxels":    len(env.Voxels),
			"triggers":  len(env.Triggers),
		}).Info("structure placed")
	}

	blasts, err := scheduleBlasts(cfg.Scenario.Blasts, r.byID)
	if err != nil {
		return nil, err
	}
	r.blasts = blasts
	return r, nil
}

func (r *Runner) System() *destruction.System { return r.sys }
func (r *Runner) Store() *voxel.Store         { return r.store }
func (r *Runner) Clock() *Clock               { return r.clock }
func (r *Runner) Ticks() uint64               { return r.ticks }

func (r *Runner) Structures() []*Structure {
	return append([]*Structure(nil), r.structures...)
}

func (r *Runner) Structure(id string) (*Structure, bool) {
	st, ok := r.byID[id]
	return st, ok
}

// Elapsed is the simulated time covered by completed ticks.
func (r *Runner) Elapsed() time.Duration {
	return time.Duration(r.ticks) * r.tick
}

// Signal raises an external signal for trigger evaluation. It may be called
// from any goroutine.
func (r *Runner) Signal(name string) {
	r.inputMu.Lock()
	r.signals[name] = true
	r.inputMu.Unlock()
}

func (r *Runner) SetPlayers(players ...mgl32.Vec3) {
	r.inputMu.Lock()
	r.players = append(r.players[:0], players...)
	r.inputMu.Unlock()
}

// Step runs one tick: due blasts fire, triggers are evaluated, the system
// clock advances and every active event is processed once.
func (r *Runner) Step() (TickReport, error) {
	report := TickReport{Tick: r.ticks}
	activeBefore := len(r.sys.ActiveEvents())
	completedBefore := r.sys.Stats().EventsCompleted

	for r.nextBlast < len(r.blasts) && r.blasts[r.nextBlast].tick <= int(r.ticks) {
		b := r.blasts[r.nextBlast]
		r.nextBlast++
		id := r.sys.TriggerDestruction(r.cfg.Simulation.WorldID, b.position, b.kind, b.force)
		r.log.WithFields(logrus.Fields{
			"event_id":  id,
			"structure": b.structure,
			"tick":      r.ticks,
		}).Info("blast fired")
		report.Fired = append(report.Fired, id)
	}

	state := r.triggerState()
	for _, st := range r.structures {
		report.Fired = append(report.Fired, r.sys.EvaluateTriggers(r.cfg.Simulation.WorldID, r.store, st.Env, state)...)
	}

	// Events fired this tick get their Initial pass before the clock moves,
	// otherwise a long tick would carry them past it.
	var errs []error
	processed := make(map[string]struct{}, len(report.Fired))
	for _, id := range report.Fired {
		processed[id] = struct{}{}
		errs = r.process(id, &report, errs)
	}

	r.clock.Advance(r.tick)
	r.sys.Update(float32(r.tick.Seconds()))

	for _, id := range r.sys.ActiveEvents() {
		if _, done := processed[id]; done {
			continue
		}
		errs = r.process(id, &report, errs)
	}

	report.Deltas = r.deltas.flush(r.ticks, &r.deltaSeq)
	if len(report.Deltas) > 0 && r.onDelta != nil {
		r.onDelta(report.Deltas)
	}
	report.Active = len(r.sys.ActiveEvents())
	report.Completed = r.sys.Stats().EventsCompleted - completedBefore
	r.idle = activeBefore == 0 && len(report.Fired) == 0 && report.Active == 0
	r.ticks++
	return report, errors.Join(errs...)
}

func (r *Runner) process(id string, report *TickReport, errs []error) []error {
	res, err := r.sys.ProcessDestruction(r.store, id)
	if err != nil {
		r.log.WithError(err).WithField("event_id", id).Warn("destruction step failed")
		errs = append(errs, err)
	}
	report.Destroyed += len(res.Newly)
	if res.Summary == nil {
		return errs
	}
	for _, change := range res.Summary.Changes() {
		if chunk, ok := r.store.Region().Locate(change.Pos); ok {
			r.deltas.add(chunk, change)
		}
	}
	return errs
}

func (r *Runner) triggerState() destruction.TriggerState {
	r.inputMu.Lock()
	defer r.inputMu.Unlock()
	signals := make(map[string]bool, len(r.signals))
	for k, v := range r.signals {
		signals[k] = v
	}
	return destruction.TriggerState{
		Players: append([]mgl32.Vec3(nil), r.players...),
		Elapsed: float32(r.Elapsed().Seconds()),
		Signals: signals,
	}
}

// Done reports whether the scenario has nothing left to do: every blast has
// fired, no timer trigger is pending and the last tick was idle.
func (r *Runner) Done() bool {
	if r.nextBlast < len(r.blasts) || !r.idle {
		return false
	}
	for _, st := range r.structures {
		for _, trigger := range st.Env.PendingTriggers() {
			if trigger.Condition.Kind == destruction.TimeElapsed {
				return false
			}
		}
	}
	return true
}

// Run steps until the scenario is done, maxTicks is reached or ctx is
// cancelled. Realtime runs pace steps on a ticker at the tick rate.
func (r *Runner) Run(ctx context.Context) error {
	var tickerC <-chan time.Time
	if r.cfg.Simulation.Realtime {
		c, stop := r.newTicker(r.tick)
		defer stop()
		tickerC = c
	}

	started := time.Now()
	for {
		if limit := r.cfg.Simulation.MaxTicks; limit > 0 && r.ticks >= uint64(limit) {
			r.logFinished("max ticks reached", started)
			return nil
		}
		if r.ticks > 0 && r.Done() {
			r.logFinished("scenario settled", started)
			return nil
		}

		if tickerC != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tickerC:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := r.Step(); err != nil {
			return fmt.Errorf("tick %d: %w", r.ticks-1, err)
		}
	}
}

func (r *Runner) logFinished(reason string, started time.Time) {
	stats := r.sys.Stats()
	r.log.WithFields(logrus.Fields{
		"ticks":            r.ticks,
		"simulated":        r.Elapsed().String(),
		"wall":             time.Since(started).String(),
		"events":           stats.DestructionEvents,
		"events_completed": stats.EventsCompleted,
		"voxels_destroyed": stats.VoxelsDestroyed,
	}).Info(reason)
}
