package intersight

// Record is a single managed object as returned by the Intersight API.
type Record map[string]interface{}

// String returns the string value of key, or an empty string when the key is absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Has returns true when key is present on the record, regardless of its value.
func (r Record) Has(key string) bool {
	_, exists := r[key]
	return exists
}

// Map returns the nested object at key, nil when absent or not an object.
func (r Record) Map(key string) Record {
	switch v := r[key].(type) {
	case map[string]interface{}:
		return Record(v)
	case Record:
		return v
	default:
		return nil
	}
}

// Response is a decoded Intersight API response.
type Response struct {
	StatusCode int
	Data       map[string]interface{}
}

// Results returns the managed objects listed under the Results key of a collection response.
//
// Entries that are not JSON objects are skipped.
func (r *Response) Results() []Record {
	if r == nil || r.Data == nil {
		return nil
	}

	list, ok := r.Data["Results"].([]interface{})
	if !ok {
		return nil
	}

	records := make([]Record, 0, len(list))

	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		records = append(records, Record(obj))
	}

	return records
}
