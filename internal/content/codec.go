package content

import (
	"encoding/json"
	"fmt"

	"github.com/minehubyt/Anand-Pandey/internal/docstore"
)

// encode converts an entity to document data. The id lives in the document
// key, never in the body.
func encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	delete(data, "id")
	return data, nil
}

// decode fills v from doc, injecting the document id under idField.
func decode(doc docstore.Document, idField string, v any) error {
	data := make(map[string]any, len(doc.Data)+1)
	for k, val := range doc.Data {
		data[k] = val
	}
	data[idField] = doc.ID
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", doc.ID, err)
	}
	return nil
}

func decodeAll[T any](docs []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := decode(doc, "id", &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
