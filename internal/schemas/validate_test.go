package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schemafiles "github.com/minehubyt/Anand-Pandey/schemas"
)

func TestLoad_Caches(t *testing.T) {
	first, err := Load(schemafiles.LegalAnalysis)
	require.NoError(t, err)
	second, err := Load(schemafiles.LegalAnalysis)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("missing.schema.json")
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "missing.schema.json", loadErr.Path)
	assert.Contains(t, err.Error(), "schema not found")
}

func TestValidateDocument_FieldErrors(t *testing.T) {
	err := ValidateDocument(schemafiles.LegalAnalysis, `{"urgency":"Someday"}`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, schemafiles.LegalAnalysis, ve.Schema)

	fields := make(map[string]bool)
	for _, fe := range ve.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["(root)"], "missing required properties are reported at the root")
	assert.True(t, fields["urgency"])
	assert.Contains(t, ve.Error(), "validation failed against legal_analysis.schema.json")
}

func TestValidateDocument_MalformedJSON(t *testing.T) {
	err := ValidateDocument(schemafiles.LegalAnalysis, `{ not json }`)
	require.Error(t, err)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve), "unparseable output is not a field error")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["id"],"properties":{"id":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"id":"AKP-123456"}`))

	err := ValidateJSONString(schema, `{"id":7}`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "id", ve.Errors[0].Field)

	err = ValidateJSONString(`{"type": 12}`, `{}`)
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
}
