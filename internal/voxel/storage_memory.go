package voxel

import "sync"

type memoryStorageProvider struct{}

// NewMemoryStorageProvider keeps chunk columns in process memory.
func NewMemoryStorageProvider() StorageProvider {
	return &memoryStorageProvider{}
}

func (p *memoryStorageProvider) NewStorage(key ChunkCoord, bounds Bounds, dim Dimensions) (ColumnStorage, error) {
	return &memoryColumnStorage{
		columns: make(map[int][]Material),
	}, nil
}

type memoryColumnStorage struct {
	mu      sync.RWMutex
	columns map[int][]Material
}

func (m *memoryColumnStorage) LoadColumn(index int) ([]Material, bool, error) {
	m.mu.RLock()
	column, ok := m.columns[index]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	dup := make([]Material, len(column))
	copy(dup, column)
	return dup, true, nil
}

func (m *memoryColumnStorage) SaveColumn(index int, column []Material) error {
	m.mu.Lock()
	dup := make([]Material, len(column))
	copy(dup, column)
	m.columns[index] = dup
	m.mu.Unlock()
	return nil
}

func (m *memoryColumnStorage) Delete(index int) error {
	m.mu.Lock()
	delete(m.columns, index)
	m.mu.Unlock()
	return nil
}

func (m *memoryColumnStorage) ForEach(fn func(index int, column []Material) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for idx, column := range m.columns {
		dup := make([]Material, len(column))
		copy(dup, column)
		if !fn(idx, dup) {
			break
		}
	}
	return nil
}

func (m *memoryColumnStorage) Close() error {
	return nil
}
