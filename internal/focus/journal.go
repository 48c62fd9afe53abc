package focus

import (
	"bytes"
	"encoding/json"

	"github.com/nhle/task-focus/internal/model"
)

// volatileFields are bookkeeping timestamps that never count as a change.
var volatileFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
}

// nullJSON stands in for a field the before snapshot did not have.
var nullJSON = json.RawMessage("null")

// Diff compares two snapshots of the same task field by field. Every field
// of after whose serialized value differs from before is reported, except
// the volatile bookkeeping timestamps. Snapshots that cannot be serialized
// yield an empty diff.
func Diff(before, after model.Task) map[string]model.FieldChange {
	beforeFields, err := fieldMap(before)
	if err != nil {
		return map[string]model.FieldChange{}
	}
	afterFields, err := fieldMap(after)
	if err != nil {
		return map[string]model.FieldChange{}
	}

	changes := make(map[string]model.FieldChange)
	for key, afterVal := range afterFields {
		if volatileFields[key] {
			continue
		}
		beforeVal, ok := beforeFields[key]
		if !ok {
			beforeVal = nullJSON
		}
		if bytes.Equal(beforeVal, afterVal) {
			continue
		}
		changes[key] = model.FieldChange{Before: beforeVal, After: afterVal}
	}
	return changes
}

// fieldMap serializes t and splits it into its top-level fields. Values are
// compacted so that equal values compare byte-equal.
func fieldMap(t model.Task) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err == nil {
			fields[k] = buf.Bytes()
		}
	}
	return fields, nil
}
