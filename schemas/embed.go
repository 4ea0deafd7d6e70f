// Package schemas holds the JSON Schemas that model output is validated
// against.
package schemas

import "embed"

// Files contains every *.schema.json in this directory.
//
//go:embed *.schema.json
var Files embed.FS

// Schema file names.
const (
	LegalAnalysis = "legal_analysis.schema.json"
	ResumeFields  = "resume_fields.schema.json"
)
