package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/backend/internal/storage/models"
	"github.com/healthmate/backend/internal/validate"
)

type memPrescriptionStore struct {
	rows    []*models.PrescriptionAnalysis
	failure error
}

func (s *memPrescriptionStore) InsertPrescriptionAnalysis(a *models.PrescriptionAnalysis) error {
	if s.failure != nil {
		return s.failure
	}
	s.rows = append(s.rows, a)
	return nil
}

const prescriptionJSON = `{
	"medications": [{"name": "amoxicillin", "purpose": "bacterial infection", "dosage": "500mg three times daily", "sideEffects": ["nausea"], "warnings": [], "interactions": []}],
	"interactions": [],
	"sideEffects": ["nausea"],
	"monitoring": ["finish the full course"],
	"lifestyle": [],
	"confidence": 0.8,
	"disclaimer": "Follow your pharmacist's instructions."
}`

func TestExplainHappyPath(t *testing.T) {
	completer := &mockCompleter{}
	store := &memPrescriptionStore{}
	explainer := NewExplainer(completer, store)

	completer.On("Complete", mock.Anything, mock.Anything).Return(prescriptionJSON, nil).Once()

	result, err := explainer.Explain(context.Background(), "user-1",
		"Amoxicillin 500mg TID for 7 days", models.Profile{Age: 34})
	require.NoError(t, err)

	assert.Equal(t, SyncSaved, result.SyncStatus)
	require.Len(t, result.Analysis.Medications, 1)
	assert.Equal(t, "amoxicillin", result.Analysis.Medications[0].Name)
	require.Len(t, store.rows, 1)
	assert.Equal(t, "Amoxicillin 500mg TID for 7 days", store.rows[0].RawText)
}

func TestExplainEmergencySkipsModel(t *testing.T) {
	completer := &mockCompleter{}
	explainer := NewExplainer(completer, &memPrescriptionStore{})

	_, err := explainer.Explain(context.Background(), "user-1",
		"prescribed after visit for chest pain and can't breathe", models.Profile{})

	var emergencyErr *EmergencyError
	require.ErrorAs(t, err, &emergencyErr)
	assert.Equal(t, validate.EmergencyMessage, emergencyErr.Message)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestExplainRejectsInvalidInput(t *testing.T) {
	completer := &mockCompleter{}
	explainer := NewExplainer(completer, &memPrescriptionStore{})

	_, err := explainer.Explain(context.Background(), "user-1", "x", models.Profile{})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestExplainRefusal(t *testing.T) {
	completer := &mockCompleter{}
	explainer := NewExplainer(completer, &memPrescriptionStore{})

	completer.On("Complete", mock.Anything, mock.Anything).
		Return(`{"error": "This text is not a prescription."}`, nil).Once()

	_, err := explainer.Explain(context.Background(), "user-1",
		"my grocery list: milk, eggs, bread", models.Profile{})

	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, "This text is not a prescription.", wfErr.Message)
}

func TestExplainPersistenceFailureStillReturnsAnalysis(t *testing.T) {
	completer := &mockCompleter{}
	store := &memPrescriptionStore{failure: errors.New("disk full")}
	explainer := NewExplainer(completer, store)

	completer.On("Complete", mock.Anything, mock.Anything).Return(prescriptionJSON, nil).Once()

	result, err := explainer.Explain(context.Background(), "user-1",
		"Amoxicillin 500mg TID for 7 days", models.Profile{})
	require.NoError(t, err)

	assert.Equal(t, SyncFailed, result.SyncStatus)
	assert.NotNil(t, result.Analysis)
}

type memMedicationStore struct {
	rows []*models.MedicationSearch
}

func (s *memMedicationStore) InsertMedicationSearch(m *models.MedicationSearch) error {
	s.rows = append(s.rows, m)
	return nil
}

func TestLookupSearch(t *testing.T) {
	completer := &mockCompleter{}
	store := &memMedicationStore{}
	lookup := NewLookup(completer, store)

	completer.On("Complete", mock.Anything, mock.Anything).
		Return(`{"name": "metformin", "purpose": "blood sugar control", "sideEffects": ["GI upset"], "warnings": [], "interactions": []}`, nil).Once()

	result, err := lookup.Search(context.Background(), "user-1", "metformin", models.Profile{Age: 60})
	require.NoError(t, err)

	assert.Equal(t, "metformin", result.Info.Name)
	assert.Equal(t, SyncSaved, result.SyncStatus)
	require.Len(t, store.rows, 1)
	assert.Equal(t, "metformin", store.rows[0].Name)
}

func TestLookupEveryCallHitsModel(t *testing.T) {
	completer := &mockCompleter{}
	lookup := NewLookup(completer, &memMedicationStore{})

	reply := `{"name": "metformin", "purpose": "blood sugar control"}`
	completer.On("Complete", mock.Anything, mock.Anything).Return(reply, nil).Twice()

	_, err := lookup.Search(context.Background(), "user-1", "metformin", models.Profile{})
	require.NoError(t, err)
	_, err = lookup.Search(context.Background(), "user-1", "metformin", models.Profile{})
	require.NoError(t, err)

	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func TestLookupRejectsEmptyName(t *testing.T) {
	lookup := NewLookup(&mockCompleter{}, &memMedicationStore{})

	_, err := lookup.Search(context.Background(), "user-1", "   ", models.Profile{})

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestLookupUnknownMedicationRefusal(t *testing.T) {
	completer := &mockCompleter{}
	lookup := NewLookup(completer, &memMedicationStore{})

	completer.On("Complete", mock.Anything, mock.Anything).
		Return(`{"error": "I do not recognize this as a medication."}`, nil).Once()

	_, err := lookup.Search(context.Background(), "user-1", "flibbertigibbet", models.Profile{})

	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, "I do not recognize this as a medication.", wfErr.Message)
}
