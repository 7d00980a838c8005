package destruction

import (
	"sync"
	"time"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/voxel"
)

// mapWorld is an unbounded World backed by a map.
type mapWorld map[voxel.Pos]voxel.Material

func (w mapWorld) Voxel(p voxel.Pos) (voxel.Material, bool) {
	m, ok := w[p]
	if !ok || m == voxel.Air {
		return voxel.Air, false
	}
	return m, true
}

func (w mapWorld) SetVoxel(p voxel.Pos, m voxel.Material) error {
	if m == voxel.Air {
		delete(w, p)
		return nil
	}
	w[p] = m
	return nil
}

func (w mapWorld) fill(lo, hi voxel.Pos, m voxel.Material) {
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				w[voxel.Pos{X: x, Y: y, Z: z}] = m
			}
		}
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	records []EventRecord
}

func (s *recordingSink) EventCompleted(rec EventRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func testConfig() config.DestructionConfig {
	return config.DefaultDestruction()
}

func newTestSystem(clock *fakeClock, opts ...Option) *System {
	all := append([]Option{WithClock(clock.Now)}, opts...)
	return New(testConfig(), all...)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
