package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/backend/internal/llm"
	"github.com/healthmate/backend/internal/storage/models"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type memStore struct {
	reports     []*models.SymptomReport
	logs        []*models.DiagnosisLog
	answers     map[string]map[string]bool
	failWrites  bool
	writeFailed error
}

func newMemStore() *memStore {
	return &memStore{answers: make(map[string]map[string]bool)}
}

func (s *memStore) InsertSymptomReport(r *models.SymptomReport) error {
	if s.failWrites {
		return s.failErr()
	}
	s.reports = append(s.reports, r)
	return nil
}

func (s *memStore) InsertDiagnosisLog(l *models.DiagnosisLog) error {
	if s.failWrites {
		return s.failErr()
	}
	s.logs = append(s.logs, l)
	return nil
}

func (s *memStore) UpdateFollowUpAnswers(reportID, userID string, answers map[string]bool) error {
	if s.failWrites {
		return s.failErr()
	}
	s.answers[reportID] = answers
	return nil
}

func (s *memStore) failErr() error {
	if s.writeFailed == nil {
		s.writeFailed = errors.New("disk full")
	}
	return s.writeFailed
}

const initialAnalysisJSON = `{
	"conditions": [{"name": "tension headache", "likelihood": "moderate", "description": "muscle tension"}],
	"riskAssessment": "low risk",
	"urgency": "routine",
	"recommendations": ["rest", "hydration"],
	"redFlags": ["sudden severe headache"],
	"followUpQuestions": ["Is the pain on one side?", "Do you have visual changes?"],
	"confidence": 0.72,
	"disclaimer": "Not a diagnosis."
}`

const refinedAnalysisJSON = `{
	"conditions": [{"name": "migraine", "likelihood": "high", "description": "one-sided with aura"}],
	"riskAssessment": "low risk",
	"urgency": "soon",
	"recommendations": ["see a doctor this week"],
	"redFlags": [],
	"followUpQuestions": [],
	"confidence": 0.85,
	"disclaimer": "Not a diagnosis."
}`

func TestStartThenRefineHappyPath(t *testing.T) {
	completer := &mockCompleter{}
	store := newMemStore()
	checker := NewChecker(completer, store)

	completer.On("Complete", mock.Anything, mock.Anything).Return(initialAnalysisJSON, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "I have a mild headache since this morning",
		Profile:     models.Profile{Age: 30},
	})
	require.NoError(t, err)

	assert.Equal(t, StateFollowUp, sess.State)
	assert.Len(t, sess.Questions, 2)
	assert.Equal(t, SyncSaved, sess.SyncStatus)
	require.Len(t, store.reports, 1)
	require.Len(t, store.logs, 1)
	assert.False(t, store.logs[0].IsRefined)
	assert.Equal(t, store.reports[0].ID, store.logs[0].ReportID)

	completer.On("Complete", mock.Anything, mock.Anything).Return(refinedAnalysisJSON, nil).Once()

	answers := map[string]bool{
		"Is the pain on one side?":    true,
		"Do you have visual changes?": true,
	}
	sess, err = checker.Refine(context.Background(), "user-1", sess.ID, answers)
	require.NoError(t, err)

	assert.Equal(t, StateComplete, sess.State)
	assert.True(t, sess.Analysis.IsRefined)
	assert.Empty(t, sess.Analysis.FollowUpQuestions)
	assert.Equal(t, "soon", sess.Analysis.Urgency)

	// Refinement adds a second log against the same report; the first row
	// is untouched.
	require.Len(t, store.logs, 2)
	assert.Equal(t, store.logs[0].ReportID, store.logs[1].ReportID)
	assert.True(t, store.logs[1].IsRefined)
	assert.Equal(t, answers, store.answers[store.reports[0].ID])

	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func TestStartNoQuestionsCompletesImmediately(t *testing.T) {
	completer := &mockCompleter{}
	store := newMemStore()
	checker := NewChecker(completer, store)

	completer.On("Complete", mock.Anything, mock.Anything).Return(refinedAnalysisJSON, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "occasional mild cough",
	})
	require.NoError(t, err)

	assert.Equal(t, StateComplete, sess.State)
	assert.Empty(t, sess.Questions)
}

func TestStartEmergencySkipsModel(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "severe chest pain radiating to my arm",
	})
	require.NoError(t, err)

	assert.Equal(t, StateEmergency, sess.State)
	assert.NotEmpty(t, sess.Message)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestStartRejectedInputSkipsModel(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "ow",
	})
	require.NoError(t, err)

	assert.Equal(t, StateError, sess.State)
	assert.Equal(t, ReasonValidation, sess.Reason)
	assert.NotEmpty(t, sess.Message)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestStartRateLimited(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	apiErr := &llm.APIError{Kind: llm.KindRateLimited, Message: "rate limit exceeded"}
	completer.On("Complete", mock.Anything, mock.Anything).Return("", apiErr).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "I have had a sore throat for three days",
	})
	require.NoError(t, err)

	assert.Equal(t, StateError, sess.State)
	assert.Equal(t, ReasonLLM, sess.Reason)
	assert.Contains(t, sess.Message, "too many requests")
}

func TestStartRefusalSurfacesMessage(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	completer.On("Complete", mock.Anything, mock.Anything).
		Return(`{"error": "I cannot assess injuries from violence."}`, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "describing a wound for assessment purposes",
	})
	require.NoError(t, err)

	assert.Equal(t, StateError, sess.State)
	assert.Equal(t, ReasonAnalysis, sess.Reason)
	assert.Equal(t, "I cannot assess injuries from violence.", sess.Message)
}

func TestStartUnparseableReply(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	completer.On("Complete", mock.Anything, mock.Anything).
		Return("Sorry, here are my thoughts in plain prose instead.", nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "persistent lower back pain",
	})
	require.NoError(t, err)

	assert.Equal(t, StateError, sess.State)
	assert.Equal(t, genericFailureMessage, sess.Message)
}

func TestStartPersistenceFailureStillReturnsAnalysis(t *testing.T) {
	completer := &mockCompleter{}
	store := newMemStore()
	store.failWrites = true
	checker := NewChecker(completer, store)

	completer.On("Complete", mock.Anything, mock.Anything).Return(initialAnalysisJSON, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "mild headache since this morning",
	})
	require.NoError(t, err)

	assert.Equal(t, StateFollowUp, sess.State)
	require.NotNil(t, sess.Analysis)
	assert.Equal(t, SyncFailed, sess.SyncStatus)
}

func TestRefineRequiresAllAnswers(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	completer.On("Complete", mock.Anything, mock.Anything).Return(initialAnalysisJSON, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "mild headache since this morning",
	})
	require.NoError(t, err)
	require.Equal(t, StateFollowUp, sess.State)

	_, err = checker.Refine(context.Background(), "user-1", sess.ID, map[string]bool{
		"Is the pain on one side?": true,
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, StateFollowUp, sess.State)
	completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestRefineUnknownSession(t *testing.T) {
	checker := NewChecker(&mockCompleter{}, newMemStore())

	_, err := checker.Refine(context.Background(), "user-1", "nope", map[string]bool{"q": true})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefineWrongOwner(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	completer.On("Complete", mock.Anything, mock.Anything).Return(initialAnalysisJSON, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "mild headache since this morning",
	})
	require.NoError(t, err)

	_, err = checker.Refine(context.Background(), "user-2", sess.ID, map[string]bool{"q": true})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefineFromCompletedSession(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	completer.On("Complete", mock.Anything, mock.Anything).Return(refinedAnalysisJSON, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "occasional mild cough",
	})
	require.NoError(t, err)
	require.Equal(t, StateComplete, sess.State)

	_, err = checker.Refine(context.Background(), "user-1", sess.ID, map[string]bool{"q": true})

	var transitionErr *InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestSessionReturnsDetachedCopy(t *testing.T) {
	completer := &mockCompleter{}
	checker := NewChecker(completer, newMemStore())

	completer.On("Complete", mock.Anything, mock.Anything).Return(initialAnalysisJSON, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "I have a mild headache since this morning",
	})
	require.NoError(t, err)

	view, err := checker.Session(sess.ID, "user-1")
	require.NoError(t, err)
	view.State = StateError
	view.Questions[0] = "tampered"
	view.Analysis.Urgency = "urgent"

	again, err := checker.Session(sess.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StateFollowUp, again.State)
	assert.Equal(t, "Is the pain on one side?", again.Questions[0])
	assert.Equal(t, "routine", again.Analysis.Urgency)
}

func TestConcurrentRefineSingleWinner(t *testing.T) {
	completer := &mockCompleter{}
	store := newMemStore()
	checker := NewChecker(completer, store)

	completer.On("Complete", mock.Anything, mock.Anything).Return(initialAnalysisJSON, nil).Once()
	completer.On("Complete", mock.Anything, mock.Anything).Return(refinedAnalysisJSON, nil).Once()

	sess, err := checker.Start(context.Background(), "user-1", SymptomRequest{
		Description: "I have a mild headache since this morning",
	})
	require.NoError(t, err)
	require.Equal(t, StateFollowUp, sess.State)

	answers := map[string]bool{
		"Is the pain on one side?":    true,
		"Do you have visual changes?": true,
	}

	type outcome struct {
		sess *Session
		err  error
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s, err := checker.Refine(context.Background(), "user-1", sess.ID, answers)
			results <- outcome{sess: s, err: err}
		}()
	}

	var completed, rejected int
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err == nil {
			assert.Equal(t, StateComplete, r.sess.State)
			completed++
			continue
		}
		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, r.err, &transitionErr)
		rejected++
	}

	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, rejected)
	completer.AssertNumberOfCalls(t, "Complete", 2)
	require.Len(t, store.logs, 2)
}
