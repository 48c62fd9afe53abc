package root

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// writeJSON prints v indented, using the same field names as the REST API.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML prints v as YAML. Values go through their JSON form first so the
// keys match the REST API and the custom time handling on model types.
func writeYAML(w io.Writer, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return enc.Close()
}

// writeStructured prints v in the requested machine format. It reports
// false when neither format was requested.
func writeStructured(w io.Writer, asJSON, asYAML bool, v interface{}) (bool, error) {
	switch {
	case asJSON:
		return true, writeJSON(w, v)
	case asYAML:
		return true, writeYAML(w, v)
	default:
		return false, nil
	}
}
