package report

import (
	"encoding/json"
	"fmt"
)

// JSON renders v (normally a model.Snapshot) as indented JSON. Undefined
// metrics encode as null.
func JSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}
