package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minehubyt/Anand-Pandey/internal/schemas"
	schemafiles "github.com/minehubyt/Anand-Pandey/schemas"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, name := range []string{schemafiles.LegalAnalysis, schemafiles.ResumeFields} {
		t.Run(name, func(t *testing.T) {
			data, err := schemafiles.Files.ReadFile(name)
			require.NoError(t, err)

			var doc map[string]any
			require.NoError(t, json.Unmarshal(data, &doc), "schema must be valid JSON")
			assert.Equal(t, "object", doc["type"])
			assert.Equal(t, name, doc["$id"])
		})
	}
}

func TestLegalAnalysisSchema(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "valid", doc: `{"suggestedPracticeArea":"Taxation","urgency":"High","briefAdvice":"Preserve notices."}`},
		{name: "missing advice", doc: `{"suggestedPracticeArea":"Taxation","urgency":"High"}`, wantErr: true},
		{name: "urgency outside enum", doc: `{"suggestedPracticeArea":"Tax","urgency":"Critical","briefAdvice":"x"}`, wantErr: true},
		{name: "empty area", doc: `{"suggestedPracticeArea":"","urgency":"Low","briefAdvice":"x"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schemas.ValidateDocument(schemafiles.LegalAnalysis, tt.doc)
			if tt.wantErr {
				var ve *schemas.ValidationError
				require.ErrorAs(t, err, &ve)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResumeFieldsSchema(t *testing.T) {
	assert.NoError(t, schemas.ValidateDocument(schemafiles.ResumeFields, `{}`))
	assert.NoError(t, schemas.ValidateDocument(schemafiles.ResumeFields, `{"name":"Meera","interests":"Arbitration"}`))
	assert.Error(t, schemas.ValidateDocument(schemafiles.ResumeFields, `{"name":42}`))
}
