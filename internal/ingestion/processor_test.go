package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/backend/internal/validate"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	p := NewProcessor()

	got := p.normalize("  Amoxicillin\n500mg\t\tthree  times daily \r\n")
	assert.Equal(t, "Amoxicillin 500mg three times daily", got)
}

func TestNormalizeCapMatchesValidator(t *testing.T) {
	p := NewProcessor()

	long := strings.Repeat("amoxicillin 500mg three times daily ", 200)
	require.Greater(t, len(long), validate.MaxLength)

	got := p.normalize(long)
	assert.LessOrEqual(t, len(got), validate.MaxLength)

	result := validate.Classify(got)
	assert.True(t, result.Acceptable, "capped extraction must pass the length gate: %s", result.Message)
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	p := NewProcessor()

	_, err := p.ExtractText([]byte("plain text, not a PDF"))
	assert.Error(t, err)
}
