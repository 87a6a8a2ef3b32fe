package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject_PlainObject(t *testing.T) {
	input := `{"message": "hello", "score": 3}`

	result, err := ExtractJSONObject(input)

	require.NoError(t, err)
	assert.Equal(t, input, result)
}

func TestExtractJSONObject_CodeFenced(t *testing.T) {
	input := "```json\n{\"message\": \"hello\"}\n```"

	result, err := ExtractJSONObject(input)

	require.NoError(t, err)
	assert.JSONEq(t, `{"message": "hello"}`, result)
}

func TestExtractJSONObject_WrappedInProse(t *testing.T) {
	input := `Here is my assessment:

{"risk_level": "moderate", "need_hospital_visit": true}

Let me know if you need anything else.`

	result, err := ExtractJSONObject(input)

	require.NoError(t, err)
	assert.JSONEq(t, `{"risk_level": "moderate", "need_hospital_visit": true}`, result)
}

func TestExtractJSONObject_NestedObjects(t *testing.T) {
	input := `{"outer": {"inner": {"deep": 1}}, "list": [{"a": 2}]}`

	result, err := ExtractJSONObject(input)

	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &decoded))
	assert.Contains(t, decoded, "outer")
	assert.Contains(t, decoded, "list")
}

func TestExtractJSONObject_BracesInsideStrings(t *testing.T) {
	input := `{"message": "use {curly} braces \"quoted\" here", "ok": true}`

	result, err := ExtractJSONObject(input)

	require.NoError(t, err)
	assert.JSONEq(t, input, result)
}

func TestExtractJSONObject_TakesFirstObject(t *testing.T) {
	input := `{"first": 1} {"second": 2}`

	result, err := ExtractJSONObject(input)

	require.NoError(t, err)
	assert.JSONEq(t, `{"first": 1}`, result)
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	_, err := ExtractJSONObject("no json here at all")

	assert.Error(t, err)
}

func TestExtractJSONObject_Unbalanced(t *testing.T) {
	_, err := ExtractJSONObject(`{"message": "never closed"`)

	assert.Error(t, err)
}
