package network

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/destruction"
	"voxeldestruct/internal/sim"
	"voxeldestruct/internal/voxel"
)

func testStorage() config.StorageConfig {
	storage := config.Default().Storage
	storage.ChunkWidth = 8
	storage.ChunkDepth = 8
	storage.ChunkHeight = 16
	storage.ChunksPerAxis = 2
	return storage
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Simulation.WorldID = "w"
	cfg.Storage = testStorage()
	cfg.Scenario.Structures = []config.StructureSpec{{
		ID:         "wall",
		Type:       "wall",
		Origin:     [3]int{2, 0, 2},
		Dimensions: [3]int{10, 6, 2},
		Triggers: []config.TriggerSpec{
			{Trigger: "external", Offset: [3]float32{0, 3, 0}, Force: 100, Signal: "detonate"},
		},
	}}
	return cfg
}

func listen(t *testing.T) *Server {
	t.Helper()
	srv, err := Listen("127.0.0.1:0", nil, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

// subscriber serves srv and collects every envelope of the given types.
func subscriber(t *testing.T, srv *Server, types ...MessageType) <-chan Envelope {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	out := make(chan Envelope, 16)
	for _, msgType := range types {
		srv.Register(msgType, func(_ context.Context, _ *net.UDPAddr, env Envelope) {
			out <- env
		})
	}
	go func() { _ = srv.Serve(ctx) }()
	return out
}

func receive(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Envelope{}
	}
}

func TestFeedSplitsLargeDeltas(t *testing.T) {
	pub := listen(t)
	sub := listen(t)
	inbox := subscriber(t, sub, MessageChunkDelta)

	changes := make([]destruction.VoxelChange, 300)
	for i := range changes {
		changes[i] = destruction.VoxelChange{
			Pos:    voxel.Pos{X: int32(i % 10), Y: int32(i / 10), Z: 3},
			Before: voxel.Stone,
			After:  voxel.Air,
			Reason: destruction.ReasonCollapse,
		}
	}
	feed, err := NewFeed(pub, "w", []string{sub.Addr().String()})
	require.NoError(t, err)
	feed.Deltas([]sim.ChunkDelta{{Chunk: voxel.ChunkCoord{X: 1, Z: -2}, Seq: 7, Tick: 42, Changes: changes}})

	sizes := map[int]int{}
	for i := 0; i < 2; i++ {
		env := receive(t, inbox)
		var msg ChunkDelta
		require.NoError(t, json.Unmarshal(env.Payload, &msg))
		assert.Equal(t, "w", msg.WorldID)
		assert.Equal(t, 1, msg.ChunkX)
		assert.Equal(t, -2, msg.ChunkZ)
		assert.Equal(t, uint64(7), msg.Seq)
		assert.Equal(t, uint64(42), msg.Tick)
		assert.Equal(t, 2, msg.Parts)
		sizes[msg.Part] = len(msg.Voxels)
		assert.Equal(t, ChangeReasonCollapse, msg.Voxels[0].Reason)
		assert.Equal(t, voxel.Stone.String(), msg.Voxels[0].Before)
	}
	assert.Equal(t, map[int]int{0: 256, 1: 44}, sizes)
}

func TestFeedPublishesCompletedEvents(t *testing.T) {
	pub := listen(t)
	sub := listen(t)
	inbox := subscriber(t, sub, MessageEventCompleted, MessageHello)
	feed, err := NewFeed(pub, "w", []string{sub.Addr().String()})
	require.NoError(t, err)

	region := voxel.NewRegion(testStorage())
	require.NoError(t, feed.Hello(region))
	env := receive(t, inbox)
	require.Equal(t, MessageHello, env.Type)
	var hello Hello
	require.NoError(t, json.Unmarshal(env.Payload, &hello))
	assert.Equal(t, "w", hello.WorldID)
	assert.Equal(t, 2, hello.Region.ChunksPerAxis)

	started := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	rec := destruction.EventRecord{
		ID:          "dest_w_3",
		WorldID:     "w",
		Type:        destruction.Explosion,
		Force:       100,
		Epicenter:   [3]float32{5, 5, 1},
		Affected:    50,
		StartedAt:   started,
		CompletedAt: started.Add(5 * time.Second),
		Phases:      []destruction.PhaseTransition{{Phase: destruction.PhaseInitial, At: started}},
	}
	require.NoError(t, feed.EventCompleted(rec))

	env = receive(t, inbox)
	require.Equal(t, MessageEventCompleted, env.Type)
	var got destruction.EventRecord
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, destruction.Explosion, got.Type)
	assert.Equal(t, 50, got.Affected)
	assert.True(t, rec.CompletedAt.Equal(got.CompletedAt))
}

func TestHandleSignals(t *testing.T) {
	srv := listen(t)
	raised := make(chan string, 4)
	HandleSignals(srv, func(name string) { raised <- name })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := listen(t)
	require.NoError(t, client.Send(srv.Addr(), MessageSignal, Signal{}))
	require.NoError(t, client.Send(srv.Addr(), MessageSignal, []byte(`"not an object"`)))
	require.NoError(t, client.Send(srv.Addr(), MessageSignal, Signal{Name: "detonate"}))

	select {
	case name := <-raised:
		assert.Equal(t, "detonate", name)
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestNewFeedRejectsBadSubscriber(t *testing.T) {
	_, err := NewFeed(listen(t), "w", []string{"not-an-address"})
	assert.ErrorContains(t, err, "not-an-address")
}

func TestSendRejectsOversizedMessages(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", nil, 128)
	require.NoError(t, err)
	defer srv.Close()

	err = srv.Send(srv.Addr(), MessageSignal, Signal{Name: strings.Repeat("x", 200)})
	assert.ErrorContains(t, err, "limit 128")
}

func TestFeedDrivesSignalTrigger(t *testing.T) {
	cfg := testConfig()
	store := voxel.NewStore(voxel.NewRegion(cfg.Storage), nil, nil)
	defer store.Close()
	runner, err := sim.New(cfg, store)
	require.NoError(t, err)

	srv := listen(t)
	raised := make(chan struct{}, 1)
	HandleSignals(srv, func(name string) {
		runner.Signal(name)
		raised <- struct{}{}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx) }()

	report, err := runner.Step()
	require.NoError(t, err)
	assert.Empty(t, report.Fired)

	client := listen(t)
	require.NoError(t, client.Send(srv.Addr(), MessageSignal, Signal{Name: "detonate"}))
	select {
	case <-raised:
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered")
	}

	report, err = runner.Step()
	require.NoError(t, err)
	require.Len(t, report.Fired, 1)
	snap, ok := runner.System().Event(report.Fired[0])
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{2, 3, 2}, snap.Position)
}
