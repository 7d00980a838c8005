package voxel

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

const (
	diskOpDelete byte = 0
	diskOpSet    byte = 1

	diskHeaderSize = 9
)

// DiskStorageProvider persists chunk columns as append-only record logs
// beneath basePath, one file per chunk.
type DiskStorageProvider struct {
	basePath string
}

func NewDiskStorageProvider(basePath string) *DiskStorageProvider {
	return &DiskStorageProvider{basePath: basePath}
}

func (p *DiskStorageProvider) NewStorage(key ChunkCoord, bounds Bounds, dim Dimensions) (ColumnStorage, error) {
	path := p.chunkPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}
	return newDiskColumnStorage(path)
}

func (p *DiskStorageProvider) chunkPath(key ChunkCoord) string {
	dir := filepath.Join(p.basePath, strconv.Itoa(int(key.X)))
	return filepath.Join(dir, fmt.Sprintf("chunk_%d.bin", key.Z))
}

type diskRecordMeta struct {
	offset int64
	size   uint32
}

type diskColumnStorage struct {
	file    *os.File
	mu      sync.RWMutex
	records map[int]diskRecordMeta
}

func newDiskColumnStorage(path string) (*diskColumnStorage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open chunk file: %w", err)
	}
	storage := &diskColumnStorage{
		file:    f,
		records: make(map[int]diskRecordMeta),
	}
	if err := storage.loadIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return storage, nil
}

// loadIndex replays the record log so the latest record per column wins.
func (s *diskColumnStorage) loadIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind chunk file: %w", err)
	}

	header := make([]byte, diskHeaderSize)
	var offset int64
	for {
		if _, err := io.ReadFull(s.file, header); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				return fmt.Errorf("truncated chunk header: %w", err)
			}
			return fmt.Errorf("read chunk header: %w", err)
		}
		op := header[0]
		index := int(binary.LittleEndian.Uint32(header[1:5]))
		size := binary.LittleEndian.Uint32(header[5:9])
		recordOffset := offset
		offset += int64(len(header)) + int64(size)

		if _, err := s.file.Seek(int64(size), io.SeekCurrent); err != nil {
			return fmt.Errorf("seek past payload: %w", err)
		}
		if op == diskOpSet {
			s.records[index] = diskRecordMeta{offset: recordOffset, size: size}
		} else {
			delete(s.records, index)
		}
	}

	return nil
}

func (s *diskColumnStorage) LoadColumn(index int) ([]Material, bool, error) {
	s.mu.RLock()
	meta, ok := s.records[index]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	payload := make([]byte, meta.size)
	if _, err := s.file.ReadAt(payload, meta.offset+diskHeaderSize); err != nil {
		return nil, false, fmt.Errorf("read payload: %w", err)
	}
	var column []Material
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&column); err != nil {
		return nil, false, fmt.Errorf("decode column: %w", err)
	}
	return column, true, nil
}

func (s *diskColumnStorage) SaveColumn(index int, column []Material) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(column); err != nil {
		return fmt.Errorf("encode column: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset, err := s.appendRecord(diskOpSet, index, payload.Bytes())
	if err != nil {
		return err
	}
	s.records[index] = diskRecordMeta{offset: offset, size: uint32(payload.Len())}
	return nil
}

func (s *diskColumnStorage) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[index]; !ok {
		return nil
	}
	if _, err := s.appendRecord(diskOpDelete, index, nil); err != nil {
		return err
	}
	delete(s.records, index)
	return nil
}

// appendRecord must be called with s.mu held.
func (s *diskColumnStorage) appendRecord(op byte, index int, payload []byte) (int64, error) {
	header := make([]byte, diskHeaderSize)
	header[0] = op
	binary.LittleEndian.PutUint32(header[1:5], uint32(index))
	binary.LittleEndian.PutUint32(header[5:9], uint32(len(payload)))

	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek chunk end: %w", err)
	}
	if _, err := s.file.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := s.file.Write(payload); err != nil {
			return 0, fmt.Errorf("write payload: %w", err)
		}
	}
	if err := s.file.Sync(); err != nil {
		return 0, fmt.Errorf("sync chunk file: %w", err)
	}
	return offset, nil
}

func (s *diskColumnStorage) ForEach(fn func(index int, column []Material) bool) error {
	s.mu.RLock()
	indices := make([]int, 0, len(s.records))
	for idx := range s.records {
		indices = append(indices, idx)
	}
	s.mu.RUnlock()

	sort.Ints(indices)
	for _, idx := range indices {
		column, ok, err := s.LoadColumn(idx)
		if err != nil {
			return fmt.Errorf("load column %d: %w", idx, err)
		}
		if !ok {
			continue
		}
		if !fn(idx, column) {
			break
		}
	}
	return nil
}

func (s *diskColumnStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
