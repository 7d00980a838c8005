package voxel

// ColumnStorage persists the vertical columns of a single chunk. Column
// slices are indexed by local Y; trailing Air is never stored.
type ColumnStorage interface {
	LoadColumn(index int) ([]Material, bool, error)
	SaveColumn(index int, column []Material) error
	Delete(index int) error
	ForEach(fn func(index int, column []Material) bool) error
	Close() error
}

// StorageProvider creates column storage for chunks.
type StorageProvider interface {
	NewStorage(key ChunkCoord, bounds Bounds, dim Dimensions) (ColumnStorage, error)
}
