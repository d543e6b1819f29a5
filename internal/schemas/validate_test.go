package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_TailoredProfile(t *testing.T) {
	schema, err := Load(TailoredProfile)
	require.NoError(t, err)
	assert.Contains(t, schema, `"work_experience"`)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load("nope")
	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "nope", loadErr.Path)
}

func TestValidateJSONString_TailoredProfile(t *testing.T) {
	schema := MustLoad(TailoredProfile)

	valid := `{
		"profile": {"name": "A", "education": [], "work_experience": [
			{"company": "X", "position": "Dev", "start_date": "2020-01", "current": true, "description": ["did"]}
		], "projects": [], "skills": ["Go"]},
		"insights": [{"requirement": "Go", "match": "strong", "comment": "5 years"}]
	}`
	assert.NoError(t, ValidateJSONString(schema, valid))

	missingCurrent := `{
		"profile": {"name": "A", "education": [], "work_experience": [
			{"company": "X", "position": "Dev", "start_date": "2020-01", "description": []}
		], "projects": [], "skills": []},
		"insights": []
	}`
	err := ValidateJSONString(schema, missingCurrent)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.NotEmpty(t, ve.Errors)
	assert.Contains(t, ve.Errors[0].Field, "work_experience")

	badMatch := `{"profile": {"name": "A", "education": [], "work_experience": [], "projects": [], "skills": []},
		"insights": [{"requirement": "Go", "match": "perfect", "comment": ""}]}`
	assert.Error(t, ValidateJSONString(schema, badMatch))
}

func TestValidateJSONString_RootError(t *testing.T) {
	err := ValidateJSONString(`{"type": "object", "required": ["a"]}`, `{}`)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "(root)", ve.Errors[0].Field)
	assert.Contains(t, ve.Error(), "validation failed")
}

func TestValidateJSONString_BadDocument(t *testing.T) {
	err := ValidateJSONString(`{"type": "object"}`, `{not json`)
	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}
