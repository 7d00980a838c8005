package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/destruction"
)

func sampleRecord(id string, started time.Time) destruction.EventRecord {
	return destruction.EventRecord{
		ID:        id,
		WorldID:   "world-0",
		Type:      destruction.Explosion,
		Force:     100,
		Radius:    30,
		Epicenter: [3]float32{5, 5, 1.5},
		Affected:  64,
		Debris:    50,
		Phases: []destruction.PhaseTransition{
			{Phase: destruction.PhaseInitial, At: started},
			{Phase: destruction.PhaseCollapsing, At: started.Add(600 * time.Millisecond)},
			{Phase: destruction.PhaseComplete, At: started.Add(5 * time.Second)},
		},
		StartedAt:   started,
		CompletedAt: started.Add(5 * time.Second),
	}
}

func assertSameRecord(t *testing.T, want, got destruction.EventRecord) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.WorldID, got.WorldID)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Force, got.Force)
	assert.Equal(t, want.Radius, got.Radius)
	assert.Equal(t, want.Epicenter, got.Epicenter)
	assert.Equal(t, want.Affected, got.Affected)
	assert.Equal(t, want.Debris, got.Debris)
	assert.True(t, want.StartedAt.Equal(got.StartedAt), "started %v != %v", want.StartedAt, got.StartedAt)
	assert.True(t, want.CompletedAt.Equal(got.CompletedAt), "completed %v != %v", want.CompletedAt, got.CompletedAt)
	require.Len(t, got.Phases, len(want.Phases))
	for i := range want.Phases {
		assert.Equal(t, want.Phases[i].Phase, got.Phases[i].Phase)
		assert.True(t, want.Phases[i].At.Equal(got.Phases[i].At))
	}
}

func TestEventLogRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)
	base := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)

	first := sampleRecord("dest_world-0_0", base)
	second := sampleRecord("dest_world-0_1", base.Add(10*time.Second))
	third := sampleRecord("dest_world-0_2", base.Add(2*time.Hour))
	for _, rec := range []destruction.EventRecord{first, second, third} {
		require.NoError(t, log.Write(rec))
	}
	require.NoError(t, log.Close())

	files, err := log.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "events-2024-05-01-10.jsonl.zst"),
		filepath.Join(dir, "events-2024-05-01-12.jsonl.zst"),
	}, files)

	got, err := ReadLog(files[0])
	require.NoError(t, err)
	require.Len(t, got, 2)
	assertSameRecord(t, first, got[0])
	assertSameRecord(t, second, got[1])

	got, err = ReadLog(files[1])
	require.NoError(t, err)
	require.Len(t, got, 1)
	assertSameRecord(t, third, got[0])
}

func TestEventLogAppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b"} {
		log := NewEventLog(dir)
		require.NoError(t, log.Write(sampleRecord(id, base.Add(time.Duration(i)*time.Minute))))
		require.NoError(t, log.Close())
	}

	got, err := ReadLog(NewEventLog(dir).PathForHour("2024-05-01-10"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestEventLogRecordReadableBeforeClose(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, log.Write(sampleRecord("live", base)))
	defer func() { require.NoError(t, log.Close()) }()

	f, err := os.Open(log.PathForHour("2024-05-01-10"))
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	require.NoError(t, err)
	var got destruction.EventRecord
	require.NoError(t, json.Unmarshal(line, &got))
	assert.Equal(t, "live", got.ID)
}

func TestReadLogRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events-bad.jsonl.zst")
	require.NoError(t, os.WriteFile(path, []byte("not zstd at all"), 0o644))
	_, err := ReadLog(path)
	assert.Error(t, err)

	_, err = ReadLog(filepath.Join(t.TempDir(), "missing.jsonl.zst"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestIndexRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	index, err := OpenIndex(filepath.Join(t.TempDir(), "db", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	base := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	late := sampleRecord("dest_world-0_1", base.Add(time.Minute))
	early := sampleRecord("dest_world-0_0", base)
	other := sampleRecord("dest_other_0", base)
	other.WorldID = "other"
	other.Type = destruction.Melting

	for _, rec := range []destruction.EventRecord{late, early, other} {
		require.NoError(t, index.Record(ctx, rec))
	}

	got, err := index.Lookup(ctx, early.ID)
	require.NoError(t, err)
	assertSameRecord(t, early, got)

	list, err := index.ListByWorld(ctx, "world-0")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assertSameRecord(t, late, list[1])

	_, err = index.Lookup(ctx, "dest_world-0_9")
	assert.ErrorIs(t, err, ErrNotIndexed)

	// Re-recording replaces the row and its phases.
	early.Affected = 70
	early.Phases = early.Phases[:1]
	require.NoError(t, index.Record(ctx, early))
	got, err = index.Lookup(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, got.Affected)
	assert.Len(t, got.Phases, 1)

	n, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOpenIndexRequiresPath(t *testing.T) {
	_, err := OpenIndex("")
	assert.Error(t, err)
}

func TestArchiveIsEventSink(t *testing.T) {
	dir := t.TempDir()
	arch, err := Open(config.ArchiveConfig{Enabled: true, Dir: dir}, nil)
	require.NoError(t, err)

	rec := sampleRecord("dest_world-0_0", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	var sink destruction.EventSink = arch
	require.NoError(t, sink.EventCompleted(rec))

	got, err := arch.Index.Lookup(context.Background(), rec.ID)
	require.NoError(t, err)
	assertSameRecord(t, rec, got)
	require.NoError(t, arch.Close())

	logged, err := ReadLog(filepath.Join(dir, "events", "events-2024-05-01-10.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assertSameRecord(t, rec, logged[0])
	assert.FileExists(t, filepath.Join(dir, "index.db"))

	_, err = Open(config.ArchiveConfig{}, nil)
	assert.Error(t, err)
}
