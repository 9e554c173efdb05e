package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainJSON(t *testing.T) {
	text, err := Extract(`{"urgency": "routine", "confidence": 0.8}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urgency": "routine", "confidence": 0.8}`, text)
}

func TestExtractFencedJSON(t *testing.T) {
	raw := "```json\n{\"urgency\": \"routine\"}\n```"

	text, err := Extract(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urgency": "routine"}`, text)
}

func TestExtractJSONWithSurroundingProse(t *testing.T) {
	raw := `Sure, here is the analysis you asked for:
{"urgency": "soon", "confidence": 0.6}
Let me know if you need anything else.`

	text, err := Extract(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urgency": "soon", "confidence": 0.6}`, text)
}

func TestExtractRepairsTrailingComma(t *testing.T) {
	raw := `{"recommendations": ["rest", "fluids",], "confidence": 0.5,}`

	text, err := Extract(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recommendations": ["rest", "fluids"], "confidence": 0.5}`, text)
}

func TestExtractRepairsSmartQuotes(t *testing.T) {
	raw := `{“urgency”: “routine”}`

	text, err := Extract(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urgency": "routine"}`, text)
}

func TestExtractNoObject(t *testing.T) {
	_, err := Extract("I'm sorry, I cannot help with that.")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, StageSlice, parseErr.Stage)
}

func TestExtractUnrepairable(t *testing.T) {
	_, err := Extract(`{"urgency": routine and broken}`)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, StageRepair, parseErr.Stage)
}

func TestExtractRefusal(t *testing.T) {
	_, err := Extract(`{"error": "I cannot provide medical advice about this."}`)

	var refusal *RefusalError
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, "I cannot provide medical advice about this.", refusal.Message)
}

func TestExtractRefusalKeyVariant(t *testing.T) {
	_, err := Extract(`{"refusal": "outside policy"}`)

	var refusal *RefusalError
	require.True(t, errors.As(err, &refusal))
	assert.Equal(t, "outside policy", refusal.Message)
}

func TestDecodeTyped(t *testing.T) {
	var out struct {
		Urgency    string  `json:"urgency"`
		Confidence float64 `json:"confidence"`
	}

	err := Decode("```\n{\"urgency\": \"urgent\", \"confidence\": 0.9,}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "urgent", out.Urgency)
	assert.Equal(t, 0.9, out.Confidence)
}

func TestStripFencesIdempotent(t *testing.T) {
	once := StripFences("```json\n{\"a\": 1}\n```")
	assert.Equal(t, once, StripFences(once))
}
