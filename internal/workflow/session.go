package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthmate/backend/internal/storage/models"
)

type State int

const (
	StateInitial State = iota
	StateAnalyzing
	StateFollowUp
	StateRefining
	StateComplete
	StateEmergency
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateAnalyzing:
		return "analyzing"
	case StateFollowUp:
		return "followup"
	case StateRefining:
		return "refining"
	case StateComplete:
		return "complete"
	case StateEmergency:
		return "emergency"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// validTransitions is the whole state machine. StateError is reachable from
// every non-terminal state; nothing leaves a terminal state.
var validTransitions = map[State][]State{
	StateInitial:   {StateAnalyzing, StateEmergency, StateError},
	StateAnalyzing: {StateFollowUp, StateComplete, StateError},
	StateFollowUp:  {StateRefining, StateError},
	StateRefining:  {StateComplete, StateError},
}

const (
	SyncSaved  = "saved"
	SyncFailed = "failed"
)

const (
	ReasonValidation = "validation"
	ReasonLLM        = "llm"
	ReasonAnalysis   = "analysis"
)

// Session is one symptom-check run. It accumulates the report, the analysis
// and the follow-up exchange as the machine advances. Once a session is in
// the manager it is reachable from concurrent requests; mutations and reads
// of a shared session go through mu.
type Session struct {
	mu sync.Mutex

	ID         string
	UserID     string
	State      State
	Reason     string
	Message    string
	Report     *models.SymptomReport
	Analysis   *models.SymptomAnalysis
	Questions  []string
	Answers    map[string]bool
	SyncStatus string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func newSession(userID string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		State:     StateInitial,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// transition advances the machine. Callers hold mu once the session is in
// the manager.
func (s *Session) transition(to State) error {
	for _, allowed := range validTransitions[s.State] {
		if allowed == to {
			s.State = to
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return &InvalidTransitionError{From: s.State, To: to}
}

func (s *Session) fail(reason, message string) {
	// Error is reachable from any state; bypass the transition table.
	s.State = StateError
	s.Reason = reason
	s.Message = message
	s.UpdatedAt = time.Now()
}

// failShared is fail for a session other goroutines can already reach.
func (s *Session) failShared(reason, message string) {
	s.mu.Lock()
	s.fail(reason, message)
	s.mu.Unlock()
}

// snapshot returns a detached copy for callers outside the workflow. The
// live session keeps changing under mu; handlers never serialize a
// half-written state.
func (s *Session) snapshot() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := Session{
		ID:         s.ID,
		UserID:     s.UserID,
		State:      s.State,
		Reason:     s.Reason,
		Message:    s.Message,
		SyncStatus: s.SyncStatus,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Report != nil {
		report := *s.Report
		cp.Report = &report
	}
	if s.Analysis != nil {
		analysis := *s.Analysis
		cp.Analysis = &analysis
	}
	cp.Questions = append([]string(nil), s.Questions...)
	if s.Answers != nil {
		cp.Answers = make(map[string]bool, len(s.Answers))
		for q, a := range s.Answers {
			cp.Answers[q] = a
		}
	}
	return &cp
}

const sessionTTL = time.Hour

// SessionManager holds in-flight symptom-check sessions in memory. Sessions
// are short-lived conversational state, not durable data; the persisted
// SymptomReport and DiagnosisLog rows are the record.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

func (m *SessionManager) put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	m.evictStale()
}

// Get returns the live session scoped to its owner. Callers outside the
// workflow get a snapshot via Checker.Session instead.
func (m *SessionManager) Get(id, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) evictStale() {
	cutoff := time.Now().Add(-sessionTTL)
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := s.UpdatedAt.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
		}
	}
}
