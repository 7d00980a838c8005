package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"voxeldestruct/internal/logging"
)

type Handler func(ctx context.Context, addr *net.UDPAddr, env Envelope)

type Server struct {
	conn    *net.UDPConn
	logger  logrus.FieldLogger
	maxSize int
	seq     atomic.Uint64

	mu       sync.RWMutex
	handlers map[MessageType][]Handler
}

func Listen(listenAddr string, logger logrus.FieldLogger, maxSize int) (*Server, error) {
	if maxSize <= 0 {
		maxSize = 64 * 1024
	}
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		conn:     conn,
		logger:   logger.WithField("component", "network"),
		maxSize:  maxSize,
		handlers: make(map[MessageType][]Handler),
	}, nil
}

func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

func (s *Server) MaxSize() int {
	return s.maxSize
}

func (s *Server) Close() error {
	return s.conn.Close()
}

func (s *Server) Register(msgType MessageType, handler Handler) {
	s.mu.Lock()
	s.handlers[msgType] = append(s.handlers[msgType], handler)
	s.mu.Unlock()
}

// Serve reads datagrams until ctx is cancelled or the server is closed.
// Handlers run on their own goroutines.
func (s *Server) Serve(ctx context.Context) error {
	buffer := make([]byte, s.maxSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, addr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			var nErr net.Error
			if errors.As(err, &nErr) && nErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		payload := make([]byte, n)
		copy(payload, buffer[:n])

		env, err := Decode(payload)
		if err != nil {
			s.logger.WithError(err).WithField("from", addr.String()).Warn("decode message")
			continue
		}

		for _, handler := range s.handlersFor(env.Type) {
			h := handler
			go h(ctx, addr, env)
		}
	}
}

func (s *Server) handlersFor(msgType MessageType) []Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Handler(nil), s.handlers[msgType]...)
}

// Send writes one envelope to addr.
func (s *Server) Send(addr *net.UDPAddr, msg MessageType, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", msg, err)
	}
	data, err := Encode(Envelope{
		Type:      msg,
		Timestamp: time.Now().UTC(),
		Seq:       s.seq.Add(1),
		Payload:   raw,
	})
	if err != nil {
		return err
	}
	if len(data) > s.maxSize {
		return fmt.Errorf("%s message is %d bytes, limit %d", msg, len(data), s.maxSize)
	}
	_, err = s.conn.WriteToUDP(data, addr)
	return err
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return []byte("null"), nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
