package destruction

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/environment"
	"voxeldestruct/internal/logging"
	"voxeldestruct/internal/voxel"
)

// Stats counts work done by a System.
type Stats struct {
	EnvironmentsGenerated int
	DestructionEvents     int
	VoxelsDestroyed       int
	EventsCompleted       int
	TotalGenerationTime   time.Duration
	// UpdateTime is the simulated time passed to Update, in seconds.
	UpdateTime float64
}

// DestructionResult describes one ProcessDestruction call.
type DestructionResult struct {
	Status  ResultStatus
	Phase   Phase
	Newly   []voxel.Pos
	Summary *ChangeSummary
}

type Option func(*System)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *System) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces time.Now for phase timing.
func WithClock(now func() time.Time) Option {
	return func(s *System) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(s *System) {
		if rng != nil {
			s.rng = rng
		}
	}
}

func WithSink(sink EventSink) Option {
	return func(s *System) {
		s.sink = sink
	}
}

// System owns the active destruction events and the shared debris and
// particle pools. It is safe for concurrent use; every call is serialised.
type System struct {
	mu  sync.Mutex
	cfg config.DestructionConfig
	log logrus.FieldLogger
	now func() time.Time
	rng *rand.Rand

	sink      EventSink
	analyzer  *IntegrityAnalyzer
	debris    *DebrisPhysics
	particles *Particles
	effects   *environment.Tracker

	events map[string]*Event
	nextID uint64
	stats  Stats
}

func New(cfg config.DestructionConfig, opts ...Option) *System {
	s := &System{
		cfg:       cfg,
		log:       logging.Discard(),
		now:       time.Now,
		analyzer:  NewIntegrityAnalyzer(cfg.Integrity),
		debris:    NewDebrisPhysics(cfg.Physics),
		particles: NewParticles(cfg.Particles),
		events:    make(map[string]*Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	s.effects = environment.NewTracker(environment.Config{
		Variance: cfg.EnvironmentVariance,
		Seed:     cfg.Seed,
	})
	return s
}

// GenerateDestructibleEnvironment lays out a structure, scores its
// integrity and registers its environmental effects.
func (s *System) GenerateDestructibleEnvironment(params Params) (*DestructibleEnvironment, error) {
	started := time.Now()
	dim, err := dimensionsOf(params.Dimensions)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env := newEnvironment(params, dim)
	if err := generateLayout(env, params, s.rng); err != nil {
		return nil, err
	}
	s.analyzer.Analyze(env)
	env.Triggers = append([]Trigger(nil), params.Triggers...)
	env.Effects = append([]environment.Effect(nil), params.Effects...)
	for _, effect := range env.Effects {
		s.effects.Add(effect)
	}

	s.stats.EnvironmentsGenerated++
	s.stats.TotalGenerationTime += time.Since(started)
	s.log.WithFields(logrus.Fields{
		"environment": env.ID,
		"structure":   env.Type.String(),
		"voxels":      len(env.Voxels),
		"supports":    len(env.Supports),
	}).Debug("environment generated")
	return env, nil
}

// TriggerDestruction registers a new event and returns its id.
func (s *System) TriggerDestruction(worldID string, position mgl32.Vec3, kind DestructionType, force float32) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggerLocked(worldID, position, kind, force)
}

func (s *System) triggerLocked(worldID string, position mgl32.Vec3, kind DestructionType, force float32) string {
	id := fmt.Sprintf("dest_%s_%d", worldID, s.nextID)
	s.nextID++

	now := s.now()
	event := &Event{
		ID:           id,
		WorldID:      worldID,
		Position:     position,
		Type:         kind,
		Force:        force,
		Radius:       DestructionRadius(force, kind),
		StartTime:    now,
		Affected:     make(map[voxel.Pos]struct{}),
		Phase:        PhaseInitial,
		PhaseHistory: []PhaseTransition{{Phase: PhaseInitial, At: now}},
	}
	s.events[id] = event
	s.stats.DestructionEvents++

	fields := logrus.Fields{
		"event_id": id,
		"world_id": worldID,
		"type":     kind.String(),
		"force":    force,
		"radius":   event.Radius,
	}
	s.log.WithFields(fields).Debug("destruction triggered")
	if limit := s.cfg.MaxConcurrentEvents; limit > 0 && len(s.events) > limit {
		s.log.WithFields(fields).WithField("active", len(s.events)).Warn("active destruction events exceed maxConcurrentEvents")
	}
	return id
}

// ProcessDestruction runs the handler for the event's current phase
// against world.
func (s *System) ProcessDestruction(world voxel.World, id string) (DestructionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return DestructionResult{Status: Failed}, &EventNotFoundError{ID: id}
	}

	result := DestructionResult{
		Status:  Continuing,
		Phase:   event.Phase,
		Summary: NewChangeSummary(),
	}
	var err error
	switch event.Phase {
	case PhaseInitial:
		result.Newly, err = s.processInitial(world, event, result.Summary)
	case PhasePropagating:
		result.Newly, err = s.processPropagation(world, event, result.Summary)
	case PhaseCollapsing:
		result.Newly, err = s.processCollapse(world, event, result.Summary)
	case PhaseSettling:
		s.processSettling(event)
	case PhaseComplete:
		result.Status = Complete
	}
	s.stats.VoxelsDestroyed += len(result.Newly)
	if err != nil {
		result.Status = Failed
		return result, fmt.Errorf("process %s in %s: %w", id, event.Phase, err)
	}

	if len(result.Newly) > 0 {
		s.log.WithFields(logrus.Fields{
			"event_id": id,
			"phase":    event.Phase.String(),
			"newly":    len(result.Newly),
			"affected": len(event.Affected),
			"debris":   len(event.Debris),
		}).Debug("destruction processed")
	}
	return result, nil
}

// Update advances effects, shared pools and every event's phase clock by
// dt seconds. Events that reach Complete are finalised and removed.
func (s *System) Update(dt float32) {
	if dt < 0 {
		dt = 0
	}
	s.mu.Lock()
	var done []EventRecord
	defer func() {
		s.mu.Unlock()
		s.deliver(done)
	}()

	s.effects.Step(dt)
	s.debris.Update(dt, s.effects)
	s.particles.Update(dt)
	s.stats.UpdateTime += float64(dt)

	now := s.now()
	for _, id := range s.sortedIDsLocked() {
		event := s.events[id]
		s.advancePhase(event, now)
		switch event.Phase {
		case PhaseSettling:
			event.settleAccumulator += dt
		case PhaseComplete:
			done = append(done, s.finalize(event, now))
		}
	}
}

// CleanupCompletedEvents finalises any event whose clock has run out but
// that has not yet been swept by Update. It returns how many were removed.
func (s *System) CleanupCompletedEvents() int {
	s.mu.Lock()
	now := s.now()
	var done []EventRecord
	for _, id := range s.sortedIDsLocked() {
		event := s.events[id]
		s.advancePhase(event, now)
		if event.Phase == PhaseComplete {
			done = append(done, s.finalize(event, now))
		}
	}
	s.mu.Unlock()

	s.deliver(done)
	return len(done)
}

func (s *System) advancePhase(event *Event, now time.Time) {
	next := phaseAt(now.Sub(event.StartTime).Seconds())
	if next <= event.Phase {
		return
	}
	s.log.WithFields(logrus.Fields{
		"event_id": event.ID,
		"from":     event.Phase.String(),
		"phase":    next.String(),
	}).Debug("destruction phase changed")
	event.Phase = next
	event.PhaseHistory = append(event.PhaseHistory, PhaseTransition{Phase: next, At: now})
}

// finalize hands remaining debris to the shared pool and forgets the event.
// The returned record is delivered to the sink once s.mu is released.
func (s *System) finalize(event *Event, now time.Time) EventRecord {
	record := event.record(now)

	dropped := 0
	for _, p := range event.Debris {
		if s.cfg.DebrisLifetime > 0 && p.Lifetime > s.cfg.DebrisLifetime {
			p.Lifetime = s.cfg.DebrisLifetime
		}
		if !s.debris.Add(p) {
			dropped++
		}
	}
	event.Debris = nil

	delete(s.events, event.ID)
	s.stats.EventsCompleted++

	entry := s.log.WithFields(logrus.Fields{
		"event_id": event.ID,
		"world_id": event.WorldID,
		"phase":    event.Phase.String(),
		"affected": record.Affected,
		"debris":   record.Debris,
	})
	if dropped > 0 {
		entry = entry.WithField("debris_dropped", dropped)
	}
	entry.Info("destruction complete")
	return record
}

// deliver reports completed events to the sink. It must run without s.mu so
// sinks may call back into the System.
func (s *System) deliver(records []EventRecord) {
	if s.sink == nil {
		return
	}
	for _, rec := range records {
		if err := s.sink.EventCompleted(rec); err != nil {
			s.log.WithError(err).WithField("event_id", rec.ID).Warn("event sink rejected record")
		}
	}
}

func (s *System) sortedIDsLocked() []string {
	ids := make([]string, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveEvents returns the ids of all tracked events, sorted.
func (s *System) ActiveEvents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedIDsLocked()
}

// Event returns a copy of the event's current state.
func (s *System) Event(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return Snapshot{}, false
	}
	return event.snapshot(), true
}

func (s *System) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Debris returns a copy of the shared debris pool.
func (s *System) Debris() []DebrisParticle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debris.Particles()
}

// Particles returns a copy of the active particle effects.
func (s *System) Particles() []ParticleEffect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.particles.Effects()
}

func (s *System) Environment() *environment.Tracker {
	return s.effects
}

// spin returns a random angular velocity with each axis in ±magnitude/2.
func (s *System) spin(magnitude float32) mgl32.Vec3 {
	return mgl32.Vec3{
		(s.rng.Float32() - 0.5) * magnitude,
		(s.rng.Float32() - 0.5) * magnitude,
		(s.rng.Float32() - 0.5) * magnitude,
	}
}
