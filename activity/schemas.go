package activity

// DefaultItemSchemaJSON and DefaultDatasetSchemaJSON are the built-in JSON
// schema documents validated against when the operator has not supplied a
// custom schema file, covering the field set Message always populates.
const (
	DefaultItemSchemaJSON = `{
		"type": "object",
		"required": ["activity_type", "activity_time", "item_type", "container_code", "container_type", "user"],
		"properties": {
			"activity_type": {"type": "string"},
			"activity_time": {"type": "string"},
			"item_type": {"type": "string"},
			"container_code": {"type": "string"},
			"container_type": {"type": "string"},
			"zone": {"type": "integer"},
			"user": {"type": "string"}
		}
	}`

	DefaultDatasetSchemaJSON = `{
		"type": "object",
		"required": ["activity_type", "activity_time", "container_code", "user"],
		"properties": {
			"activity_type": {"type": "string"},
			"activity_time": {"type": "string"},
			"container_code": {"type": "string"},
			"user": {"type": "string"}
		}
	}`
)
