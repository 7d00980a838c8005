package network

import (
	"encoding/json"
	"time"

	"voxeldestruct/internal/destruction"
)

type MessageType string

const (
	MessageHello          MessageType = "hello"
	MessageChunkDelta     MessageType = "chunkDelta"
	MessageEventCompleted MessageType = "eventCompleted"
	MessageSignal         MessageType = "signal"
)

type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

// Hello announces a feed to its subscribers before any delta is sent.
type Hello struct {
	WorldID string `json:"worldId"`
	Region  struct {
		OriginX       int `json:"originX"`
		OriginZ       int `json:"originZ"`
		ChunksPerAxis int `json:"chunksPerAxis"`
	} `json:"region"`
}

// ChunkDelta carries one tick's voxel changes for a chunk. Large deltas are
// split into several messages sharing Seq, numbered by Part.
type ChunkDelta struct {
	WorldID string        `json:"worldId"`
	ChunkX  int           `json:"chunkX"`
	ChunkZ  int           `json:"chunkZ"`
	Seq     uint64        `json:"seq"`
	Tick    uint64        `json:"tick"`
	Part    int           `json:"part"`
	Parts   int           `json:"parts"`
	Voxels  []VoxelChange `json:"voxels"`
}

// ChangeReasonCode encodes change reasons into a compact numeric value.
type ChangeReasonCode uint8

const (
	ChangeReasonUnknown ChangeReasonCode = iota
	ChangeReasonDestroy
	ChangeReasonPropagate
	ChangeReasonCollapse
)

func reasonCode(r destruction.ChangeReason) ChangeReasonCode {
	switch r {
	case destruction.ReasonDestroy:
		return ChangeReasonDestroy
	case destruction.ReasonPropagate:
		return ChangeReasonPropagate
	case destruction.ReasonCollapse:
		return ChangeReasonCollapse
	default:
		return ChangeReasonUnknown
	}
}

type VoxelChange struct {
	X      int              `json:"x"`
	Y      int              `json:"y"`
	Z      int              `json:"z"`
	Before string           `json:"before"`
	After  string           `json:"after"`
	Reason ChangeReasonCode `json:"reason"`
}

// Signal raises a named external signal on the receiving simulation.
type Signal struct {
	Name string `json:"name"`
}

func Encode(msg Envelope) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
