// Package comms records directed message logs between agents.
package comms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidMessage rejects messages without both endpoints.
var ErrInvalidMessage = errors.New("invalid message")

// Message is a payload sent from one agent to another.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel identifies a directed from→to log.
type Channel struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Key is the canonical "from→to" form of the channel.
func (c Channel) Key() string { return c.From + "→" + c.To }

// Log stores the history of each directed channel.
type Log interface {
	Enable(ctx context.Context, ch Channel) error
	Append(ctx context.Context, msg *Message) error
	History(ctx context.Context, ch Channel) ([]*Message, error)
	Channels(ctx context.Context) ([]Channel, error)
}

// Service validates and stamps messages before handing them to a Log.
type Service struct {
	log    Log
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a service over log.
func NewService(log Log, logger *zap.Logger) *Service {
	return &Service{log: log, now: time.Now, logger: logger}
}

func validate(from, to string) error {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: sender and receiver are required", ErrInvalidMessage)
	}
	return nil
}

// EnableCommunication creates an empty from→to log if none exists.
func (s *Service) EnableCommunication(ctx context.Context, from, to string) error {
	if err := validate(from, to); err != nil {
		return err
	}
	if err := s.log.Enable(ctx, Channel{From: from, To: to}); err != nil {
		return fmt.Errorf("enable %s→%s: %w", from, to, err)
	}
	s.logger.Debug("communication enabled", zap.String("from", from), zap.String("to", to))
	return nil
}

// SendMessage appends payload to the from→to log, enabling it on first use.
func (s *Service) SendMessage(ctx context.Context, from, to string, payload any) (*Message, error) {
	if err := validate(from, to); err != nil {
		return nil, err
	}
	msg := &Message{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Payload:   payload,
		Timestamp: s.now(),
	}
	if err := s.log.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("send %s→%s: %w", from, to, err)
	}
	s.logger.Debug("message sent",
		zap.String("id", msg.ID),
		zap.String("from", from),
		zap.String("to", to))
	return msg, nil
}

// GetHistory returns the from→to messages in send order. The reverse
// direction is a separate log.
func (s *Service) GetHistory(ctx context.Context, from, to string) ([]*Message, error) {
	if err := validate(from, to); err != nil {
		return nil, err
	}
	return s.log.History(ctx, Channel{From: from, To: to})
}

// Channels lists every enabled channel.
func (s *Service) Channels(ctx context.Context) ([]Channel, error) {
	return s.log.Channels(ctx)
}

// MemoryLog keeps logs in process memory.
type MemoryLog struct {
	logs  map[Channel][]*Message
	order []Channel
	mu    sync.RWMutex
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{logs: make(map[Channel][]*Message)}
}

func (m *MemoryLog) enableLocked(ch Channel) {
	if _, ok := m.logs[ch]; !ok {
		m.logs[ch] = []*Message{}
		m.order = append(m.order, ch)
	}
}

func (m *MemoryLog) Enable(_ context.Context, ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enableLocked(ch)
	return nil
}

func (m *MemoryLog) Append(_ context.Context, msg *Message) error {
	ch := Channel{From: msg.From, To: msg.To}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enableLocked(ch)
	cp := *msg
	m.logs[ch] = append(m.logs[ch], &cp)
	return nil
}

func (m *MemoryLog) History(_ context.Context, ch Channel) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.logs[ch]
	out := make([]*Message, len(src))
	for i, msg := range src {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}

func (m *MemoryLog) Channels(_ context.Context) ([]Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Channel(nil), m.order...), nil
}
