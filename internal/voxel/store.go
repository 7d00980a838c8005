package voxel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"voxeldestruct/internal/logging"
)

// ErrOutOfBounds is returned when a write targets a position outside the
// store's region.
var ErrOutOfBounds = errors.New("voxel: position out of bounds")

// World is the point get/set surface the destruction core mutates.
// Voxel reports false for empty (Air) and unreachable positions.
type World interface {
	Voxel(p Pos) (Material, bool)
	SetVoxel(p Pos, m Material) error
}

// Store is a chunked World over a fixed region. Chunks are opened lazily
// through the configured StorageProvider.
type Store struct {
	region   Region
	provider StorageProvider
	logger   logrus.FieldLogger

	mu     sync.RWMutex
	chunks map[ChunkCoord]*Chunk
}

var _ World = (*Store)(nil)

func NewStore(region Region, provider StorageProvider, logger logrus.FieldLogger) *Store {
	if provider == nil {
		provider = NewMemoryStorageProvider()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		region:   region,
		provider: provider,
		logger:   logger,
		chunks:   make(map[ChunkCoord]*Chunk),
	}
}

func (s *Store) Region() Region {
	return s.region
}

func (s *Store) chunk(coord ChunkCoord) (*Chunk, error) {
	s.mu.RLock()
	ch, ok := s.chunks[coord]
	s.mu.RUnlock()
	if ok {
		return ch, nil
	}

	bounds, err := s.region.ChunkBounds(coord)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.chunks[coord]; ok {
		return existing, nil
	}
	storage, err := s.provider.NewStorage(coord, bounds, s.region.ChunkDimension)
	if err != nil {
		return nil, fmt.Errorf("open chunk %v storage: %w", coord, err)
	}
	ch = newChunk(coord, bounds, s.region.ChunkDimension, storage)
	s.chunks[coord] = ch
	return ch, nil
}

func (s *Store) Voxel(p Pos) (Material, bool) {
	coord, ok := s.region.Locate(p)
	if !ok {
		return Air, false
	}
	ch, err := s.chunk(coord)
	if err != nil {
		s.logger.WithError(err).WithField("pos", p.String()).Warn("voxel lookup failed")
		return Air, false
	}
	m, ok, err := ch.Voxel(p)
	if err != nil {
		s.logger.WithError(err).WithField("pos", p.String()).Warn("voxel lookup failed")
		return Air, false
	}
	return m, ok
}

func (s *Store) SetVoxel(p Pos, m Material) error {
	coord, ok := s.region.Locate(p)
	if !ok {
		return fmt.Errorf("set voxel %v: %w", p, ErrOutOfBounds)
	}
	ch, err := s.chunk(coord)
	if err != nil {
		return fmt.Errorf("set voxel %v: %w", p, err)
	}
	if _, err := ch.SetVoxel(p, m); err != nil {
		return fmt.Errorf("set voxel %v: %w", p, err)
	}
	return nil
}

// ForEach visits every non-Air voxel in the region, chunk by chunk in
// X-major order.
func (s *Store) ForEach(fn func(p Pos, m Material) bool) error {
	n := int32(s.region.ChunksPerAxis)
	for dx := int32(0); dx < n; dx++ {
		for dz := int32(0); dz < n; dz++ {
			coord := ChunkCoord{X: s.region.Origin.X + dx, Z: s.region.Origin.Z + dz}
			ch, err := s.chunk(coord)
			if err != nil {
				return err
			}
			completed, err := ch.ForEach(fn)
			if err != nil {
				return err
			}
			if !completed {
				return nil
			}
		}
	}
	return nil
}

// Count returns the number of non-Air voxels in the region.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.ForEach(func(Pos, Material) bool {
		count++
		return true
	})
	return count, err
}

// Close releases every opened chunk.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for coord, ch := range s.chunks {
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chunk %v: %w", coord, err))
		}
	}
	s.chunks = make(map[ChunkCoord]*Chunk)
	return errors.Join(errs...)
}
