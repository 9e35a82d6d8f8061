package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/beacon/internal/domain"
)

// MemorySessionStore is an in-memory SessionStore for tests and
// ephemeral sessions.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session // by key string
	byID     map[string]*domain.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[string]*domain.Session{},
		byID:     map[string]*domain.Session{},
	}
}

func (s *MemorySessionStore) GetOrCreate(ctx context.Context, key domain.SessionKey, model, prompt string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key.String()]; ok {
		cp := *sess
		return &cp, nil
	}
	sess := &domain.Session{
		ID:        uuid.New().String(),
		Key:       key,
		Model:     model,
		Prompt:    prompt,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.sessions[key.String()] = sess
	s.byID[sess.ID] = sess
	cp := *sess
	return &cp, nil
}

func (s *MemorySessionStore) SaveModel(ctx context.Context, sessionID, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.Model = model
	sess.UpdatedAt = time.Now()
	return nil
}

// MemoryTurnStore is an in-memory TurnStore.
type MemoryTurnStore struct {
	mu     sync.Mutex
	nextID int64
	turns  map[string][]domain.Turn // by session id, insertion order
}

func NewMemoryTurnStore() *MemoryTurnStore {
	return &MemoryTurnStore{turns: map[string][]domain.Turn{}}
}

func (s *MemoryTurnStore) Find(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.turns[sessionID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]domain.Turn, len(all))
	copy(out, all)
	return out, nil
}

func (s *MemoryTurnStore) Create(ctx context.Context, t *domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	s.turns[t.SessionID] = append(s.turns[t.SessionID], *t)
	return nil
}

func (s *MemoryTurnStore) Save(ctx context.Context, t *domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.turns[t.SessionID]
	for i := range list {
		if list[i].ID == t.ID {
			list[i].Content = t.Content
			list[i].Tokens = t.Tokens
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryTurnStore) Get(ctx context.Context, sessionID string, id int64) (*domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.turns[sessionID] {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryTurnStore) Search(ctx context.Context, sessionID, keyword string, limit, offset int) ([]domain.Turn, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hits []domain.Turn
	for _, t := range s.turns[sessionID] {
		if strings.Contains(t.Content, keyword) {
			hits = append(hits, t)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID > hits[j].ID })
	total := len(hits)
	if offset >= len(hits) {
		return nil, total, nil
	}
	hits = hits[offset:]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Turn, len(hits))
	copy(out, hits)
	return out, total, nil
}

// MemorySenderStore is an in-memory SenderStore.
type MemorySenderStore struct {
	mu      sync.Mutex
	senders map[string]*domain.Sender
}

func NewMemorySenderStore() *MemorySenderStore {
	return &MemorySenderStore{senders: map[string]*domain.Sender{}}
}

func (s *MemorySenderStore) GetOrCreate(ctx context.Context, id, name string) (*domain.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.senders[id]
	if !ok {
		sender = &domain.Sender{ID: id, Name: name}
		s.senders[id] = sender
	} else if name != "" {
		sender.Name = name
	}
	cp := *sender
	return &cp, nil
}

func (s *MemorySenderStore) Get(ctx context.Context, id string) (*domain.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.senders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sender
	return &cp, nil
}

func (s *MemorySenderStore) SaveInfo(ctx context.Context, id, info string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.senders[id]
	if !ok {
		return ErrNotFound
	}
	sender.Info = info
	return nil
}

func (s *MemorySenderStore) SetAdmin(ctx context.Context, id string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.senders[id]
	if !ok {
		return ErrNotFound
	}
	sender.IsAdmin = admin
	return nil
}
