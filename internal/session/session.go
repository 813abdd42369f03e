// Package session holds per-conversation chat state: an append-only
// transcript and a processing flag driven by one submission at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RichardoC/medichat/internal/models"
	"go.uber.org/zap"
)

// ErrUnanswered is returned when the responder blew up mid-run. The user turn
// stays in the transcript without an answer.
var ErrUnanswered = errors.New("response was not produced")

type Responder interface {
	Respond(ctx context.Context, userMessage string) string
}

type EventKind int

const (
	EventTurnAppended EventKind = iota
	EventCleared
	EventBusyChanged
)

type Event struct {
	SessionID string
	Kind      EventKind
	Turn      models.ChatTurn // set for EventTurnAppended
	Busy      bool
}

type Session struct {
	id        string
	createdAt time.Time
	responder Responder
	logger    *zap.Logger
	now       func() time.Time

	// submitMu queues submissions so only one orchestration runs at a time.
	submitMu sync.Mutex

	mu         sync.Mutex
	transcript []models.ChatTurn
	busy       bool
	observers  map[int]func(Event)
	nextObs    int
}

func New(id string, responder Responder, logger *zap.Logger) *Session {
	return newSession(id, responder, logger, time.Now)
}

func newSession(id string, responder Responder, logger *zap.Logger, now func() time.Time) *Session {
	return &Session{
		id:        id,
		createdAt: now(),
		responder: responder,
		logger:    logger.With(zap.String("session", id)),
		now:       now,
		observers: make(map[int]func(Event)),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Submit appends the user turn, runs the responder and appends its reply.
// Blank input is ignored and reported with accepted=false.
func (s *Session) Submit(ctx context.Context, text string) (reply models.ChatTurn, accepted bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Debug("ignoring empty submission")
		return models.ChatTurn{}, false, nil
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	userTurn := models.NewTurn(models.RoleUser, text, s.now())
	s.mu.Lock()
	s.transcript = append(s.transcript, userTurn)
	s.busy = true
	s.mu.Unlock()
	s.notify(Event{Kind: EventTurnAppended, Turn: userTurn})
	s.notify(Event{Kind: EventBusyChanged, Busy: true})

	// Detached from caller cancellation; per-call deadlines still apply.
	answer, err := s.run(context.WithoutCancel(ctx), text)
	if err != nil {
		s.logger.Error("message handling aborted", zap.Error(err))
		s.setBusy(false)
		return models.ChatTurn{}, true, err
	}

	reply = models.NewTurn(models.RoleAssistant, answer, s.now())
	s.mu.Lock()
	s.transcript = append(s.transcript, reply)
	s.busy = false
	s.mu.Unlock()
	s.notify(Event{Kind: EventTurnAppended, Turn: reply})
	s.notify(Event{Kind: EventBusyChanged, Busy: false})

	s.logger.Info("message handling completed")
	return reply, true, nil
}

func (s *Session) run(ctx context.Context, text string) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnanswered, r)
		}
	}()
	return s.responder.Respond(ctx, text), nil
}

// Transcript returns a copy of the turns in conversation order.
func (s *Session) Transcript() []models.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatTurn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transcript)
}

// Clear empties the transcript. The processing flag is left alone.
func (s *Session) Clear() {
	s.mu.Lock()
	s.transcript = nil
	s.mu.Unlock()
	s.logger.Info("chat history cleared")
	s.notify(Event{Kind: EventCleared})
}

func (s *Session) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Restore seeds the transcript from stored turns without notifying observers.
func (s *Session) Restore(turns []models.ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append([]models.ChatTurn(nil), turns...)
}

// Subscribe registers fn for every state change and returns a function that
// removes it. fn runs synchronously on the mutating goroutine.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Session) setBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
	s.notify(Event{Kind: EventBusyChanged, Busy: busy})
}

func (s *Session) notify(ev Event) {
	ev.SessionID = s.id
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
