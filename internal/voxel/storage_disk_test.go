package voxel

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDiskColumnStorageReplaysLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk.bin")

	storage, err := newDiskColumnStorage(path)
	if err != nil {
		t.Fatalf("newDiskColumnStorage: %v", err)
	}

	first := []Material{Concrete, Brick, Brick}
	second := []Material{Stone}
	if err := storage.SaveColumn(0, first); err != nil {
		t.Fatalf("SaveColumn 0: %v", err)
	}
	if err := storage.SaveColumn(5, second); err != nil {
		t.Fatalf("SaveColumn 5: %v", err)
	}
	if err := storage.SaveColumn(0, []Material{Metal}); err != nil {
		t.Fatalf("SaveColumn 0 overwrite: %v", err)
	}
	if err := storage.Delete(5); err != nil {
		t.Fatalf("Delete 5: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := newDiskColumnStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	column, ok, err := reopened.LoadColumn(0)
	if err != nil {
		t.Fatalf("LoadColumn 0: %v", err)
	}
	if !ok {
		t.Fatalf("column 0 missing after reopen")
	}
	if !reflect.DeepEqual(column, []Material{Metal}) {
		t.Fatalf("column 0 = %v, want [metal]", column)
	}
	if _, ok, _ := reopened.LoadColumn(5); ok {
		t.Fatalf("deleted column 5 resurrected")
	}

	var indices []int
	if err := reopened.ForEach(func(idx int, _ []Material) bool {
		indices = append(indices, idx)
		return true
	}); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if !reflect.DeepEqual(indices, []int{0}) {
		t.Fatalf("ForEach indices = %v", indices)
	}
}

func TestDiskColumnStorageRejectsTruncatedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk.bin")
	if err := os.WriteFile(path, []byte{diskOpSet, 1, 0}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := newDiskColumnStorage(path); err == nil {
		t.Fatalf("expected truncated header error")
	}
}
