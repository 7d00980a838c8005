package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"voxeldestruct/internal/destruction"
	"voxeldestruct/internal/sim"
	"voxeldestruct/internal/voxel"
)

// maxChangesPerMessage keeps a chunk delta comfortably inside one datagram.
const maxChangesPerMessage = 256

// Feed publishes simulation output to a fixed set of UDP subscribers.
type Feed struct {
	srv         *Server
	worldID     string
	subscribers []*net.UDPAddr
	log         logrus.FieldLogger
}

var _ destruction.EventSink = (*Feed)(nil)

// NewFeed resolves every subscriber address up front.
func NewFeed(srv *Server, worldID string, subscribers []string) (*Feed, error) {
	f := &Feed{
		srv:     srv,
		worldID: worldID,
		log:     srv.logger,
	}
	for _, sub := range subscribers {
		addr, err := net.ResolveUDPAddr("udp", sub)
		if err != nil {
			return nil, fmt.Errorf("resolve subscriber %q: %w", sub, err)
		}
		f.subscribers = append(f.subscribers, addr)
	}
	return f, nil
}

// Hello announces the feed's world and region to every subscriber.
func (f *Feed) Hello(region voxel.Region) error {
	var msg Hello
	msg.WorldID = f.worldID
	msg.Region.OriginX = int(region.Origin.X)
	msg.Region.OriginZ = int(region.Origin.Z)
	msg.Region.ChunksPerAxis = region.ChunksPerAxis
	return f.broadcast(MessageHello, msg)
}

// Deltas forwards a tick's chunk deltas. Send failures are logged; a lossy
// subscriber never stalls the simulation.
func (f *Feed) Deltas(batch []sim.ChunkDelta) {
	for _, delta := range batch {
		for _, msg := range f.splitDelta(delta) {
			if err := f.broadcast(MessageChunkDelta, msg); err != nil {
				f.log.WithError(err).WithFields(logrus.Fields{
					"chunk": fmt.Sprintf("%d,%d", delta.Chunk.X, delta.Chunk.Z),
					"seq":   delta.Seq,
				}).Warn("publish chunk delta")
			}
		}
	}
}

func (f *Feed) splitDelta(delta sim.ChunkDelta) []ChunkDelta {
	parts := (len(delta.Changes) + maxChangesPerMessage - 1) / maxChangesPerMessage
	if parts == 0 {
		return nil
	}
	out := make([]ChunkDelta, 0, parts)
	for part := 0; part < parts; part++ {
		lo := part * maxChangesPerMessage
		hi := min(lo+maxChangesPerMessage, len(delta.Changes))
		voxels := make([]VoxelChange, 0, hi-lo)
		for _, change := range delta.Changes[lo:hi] {
			voxels = append(voxels, VoxelChange{
				X:      int(change.Pos.X),
				Y:      int(change.Pos.Y),
				Z:      int(change.Pos.Z),
				Before: change.Before.String(),
				After:  change.After.String(),
				Reason: reasonCode(change.Reason),
			})
		}
		out = append(out, ChunkDelta{
			WorldID: f.worldID,
			ChunkX:  int(delta.Chunk.X),
			ChunkZ:  int(delta.Chunk.Z),
			Seq:     delta.Seq,
			Tick:    delta.Tick,
			Part:    part,
			Parts:   parts,
			Voxels:  voxels,
		})
	}
	return out
}

func (f *Feed) EventCompleted(rec destruction.EventRecord) error {
	return f.broadcast(MessageEventCompleted, rec)
}

func (f *Feed) broadcast(msg MessageType, payload any) error {
	var errs []error
	for _, addr := range f.subscribers {
		if err := f.srv.Send(addr, msg, payload); err != nil {
			errs = append(errs, fmt.Errorf("send %s to %s: %w", msg, addr.String(), err))
		}
	}
	return errors.Join(errs...)
}

// HandleSignals routes incoming signal messages to raise.
func HandleSignals(srv *Server, raise func(name string)) {
	srv.Register(MessageSignal, func(_ context.Context, addr *net.UDPAddr, env Envelope) {
		var sig Signal
		if err := json.Unmarshal(env.Payload, &sig); err != nil || sig.Name == "" {
			srv.logger.WithField("from", addr.String()).Warn("ignoring malformed signal")
			return
		}
		srv.logger.WithFields(logrus.Fields{
			"from":   addr.String(),
			"signal": sig.Name,
		}).Info("signal received")
		raise(sig.Name)
	})
}
