package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/schemas"
)

func TestConvertSchema_TailoredProfile(t *testing.T) {
	s, err := ConvertSchema(schemas.MustLoad(schemas.TailoredProfile))
	require.NoError(t, err)

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"profile", "insights"}, s.Required)

	work := s.Properties["profile"].Properties["work_experience"]
	require.NotNil(t, work)
	assert.Equal(t, genai.TypeArray, work.Type)
	assert.Equal(t, genai.TypeBoolean, work.Items.Properties["current"].Type)

	match := s.Properties["insights"].Items.Properties["match"]
	assert.Equal(t, []string{"strong", "partial", "missing"}, match.Enum)
	assert.Equal(t, "enum", match.Format)
}

func TestConvertSchema_Errors(t *testing.T) {
	_, err := ConvertSchema(`{not json`)
	assert.Error(t, err)

	_, err = ConvertSchema(`{"type": "array"}`)
	assert.ErrorContains(t, err, "no items schema")

	_, err = ConvertSchema(`{"type": "object", "properties": {"x": {"type": "null"}}}`)
	assert.ErrorContains(t, err, "(root).x")
}
