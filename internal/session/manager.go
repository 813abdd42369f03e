package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RichardoC/medichat/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("session not found")

// Journal stores transcripts outside the process. All methods are best effort
// from the session's point of view.
type Journal interface {
	CreateSession(ctx context.Context, id string, createdAt time.Time) error
	AppendTurn(ctx context.Context, sessionID string, turn models.ChatTurn) error
	ClearTurns(ctx context.Context, sessionID string) error
	// DeleteSession reports whether a stored session was removed.
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	// LoadSession returns the stored turns and whether the session exists.
	LoadSession(ctx context.Context, sessionID string) ([]models.ChatTurn, bool, error)
}

const journalTimeout = 5 * time.Second

type entry struct {
	session      *Session
	unsubscribe  func()
	lastAccessed time.Time
}

// Manager keeps live sessions keyed by id and evicts the least recently used
// one when full.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
	maxSize  int

	responder Responder
	journal   Journal
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager accepts a nil journal.
func NewManager(responder Responder, journal Journal, maxSize int, logger *zap.Logger) *Manager {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Manager{
		sessions:  make(map[uuid.UUID]*entry, maxSize),
		maxSize:   maxSize,
		responder: responder,
		journal:   journal,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.New()
	s := newSession(id.String(), m.responder, m.logger, m.now)

	if m.journal != nil {
		if err := m.journal.CreateSession(ctx, s.ID(), s.CreatedAt()); err != nil {
			return nil, fmt.Errorf("failed to record session: %w", err)
		}
	}

	m.mu.Lock()
	m.insertLocked(id, s)
	m.mu.Unlock()

	m.logger.Info("session created", zap.String("session", s.ID()))
	return s, nil
}

// Get returns a live session, rehydrating it from the journal when it is not
// in memory.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		e.lastAccessed = m.now()
		m.mu.Unlock()
		return e.session, nil
	}
	m.mu.Unlock()

	if m.journal == nil {
		return nil, ErrNotFound
	}

	turns, ok, err := m.journal.LoadSession(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it while we were reading.
	if e, ok := m.sessions[id]; ok {
		e.lastAccessed = m.now()
		return e.session, nil
	}
	s := newSession(id.String(), m.responder, m.logger, m.now)
	s.Restore(turns)
	m.insertLocked(id, s)
	m.logger.Info("session restored from journal",
		zap.String("session", s.ID()),
		zap.Int("turns", len(turns)))
	return s, nil
}

func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		e.unsubscribe()
	}

	if m.journal != nil {
		stored, err := m.journal.DeleteSession(ctx, id.String())
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		ok = ok || stored
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) insertLocked(id uuid.UUID, s *Session) {
	if len(m.sessions) >= m.maxSize {
		m.evictLocked()
	}
	unsubscribe := func() {}
	if m.journal != nil {
		unsubscribe = s.Subscribe(m.record)
	}
	m.sessions[id] = &entry{session: s, unsubscribe: unsubscribe, lastAccessed: m.now()}
}

// evictLocked drops the least recently used idle session, or the least
// recently used one if every session is busy.
func (m *Manager) evictLocked() {
	var victim, fallback uuid.UUID
	var victimTime, fallbackTime time.Time
	for id, e := range m.sessions {
		if fallback == uuid.Nil || e.lastAccessed.Before(fallbackTime) {
			fallback, fallbackTime = id, e.lastAccessed
		}
		if e.session.IsBusy() {
			continue
		}
		if victim == uuid.Nil || e.lastAccessed.Before(victimTime) {
			victim, victimTime = id, e.lastAccessed
		}
	}
	if victim == uuid.Nil {
		victim = fallback
	}
	if e, ok := m.sessions[victim]; ok {
		delete(m.sessions, victim)
		detachWhenIdle(e)
		m.logger.Info("session evicted",
			zap.String("session", victim.String()),
			zap.Bool("busy", e.session.IsBusy()))
	}
}

// detachWhenIdle keeps an evicted session journaled until its in-flight
// reply has been appended.
func detachWhenIdle(e *entry) {
	var once sync.Once
	release := func() { once.Do(e.unsubscribe) }
	e.session.Subscribe(func(ev Event) {
		if ev.Kind == EventBusyChanged && !ev.Busy {
			release()
		}
	})
	if !e.session.IsBusy() {
		release()
	}
}

// record mirrors session events into the journal.
func (m *Manager) record(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	var err error
	switch ev.Kind {
	case EventTurnAppended:
		err = m.journal.AppendTurn(ctx, ev.SessionID, ev.Turn)
	case EventCleared:
		err = m.journal.ClearTurns(ctx, ev.SessionID)
	default:
		return
	}
	if err != nil {
		m.logger.Error("failed to write journal",
			zap.String("session", ev.SessionID),
			zap.Error(err))
	}
}
