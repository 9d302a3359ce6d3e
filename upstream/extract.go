package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// vrmDetailsKey is the name of the JSON object embedded in the provider
// page that carries the vehicle data.
const vrmDetailsKey = "VrmDetails"

// extractObject returns the raw JSON object that follows the given key in
// an HTML document. The key may appear plain or JS-escaped. Instead of a
// brittle regex the function finds the opening brace after the key and
// counts braces while respecting JSON string quoting, so nested objects
// are handled correctly.
func extractObject(doc, key string) (string, error) {
	idx := strings.Index(doc, `"`+key+`"`)
	if idx < 0 {
		// escaped within a JS string
		idx = strings.Index(doc, `\"`+key+`\"`)
	}
	if idx < 0 {
		return "", fmt.Errorf("key %q not found in document", key)
	}

	start := strings.IndexByte(doc[idx:], '{')
	if start < 0 {
		return "", fmt.Errorf("opening brace for key %q not found", key)
	}
	start += idx

	braceLevel := 0
	inString := false
	escaped := false
	for pos := start; pos < len(doc); pos++ {
		ch := doc[pos]

		if ch == '"' && !escaped {
			inString = !inString
		}
		if !inString {
			switch ch {
			case '{':
				braceLevel++
			case '}':
				braceLevel--
				if braceLevel == 0 {
					return doc[start : pos+1], nil
				}
			}
		}
		escaped = ch == '\\' && !escaped
	}

	return "", fmt.Errorf("no matching closing brace for key %q", key)
}

// decodeObject unmarshals a raw JSON object, falling back to a pass that
// strips JS escaping in case the chunk was lifted out of a script string.
func decodeObject(raw string) (map[string]interface{}, error) {
	var m map[string]interface{}
	err := json.Unmarshal([]byte(raw), &m)
	if err == nil {
		return m, nil
	}

	unescaped := strings.ReplaceAll(raw, `\"`, `"`)
	if uerr := json.Unmarshal([]byte(unescaped), &m); uerr == nil {
		return m, nil
	}

	return nil, err
}

// stringify renders a decoded JSON value for the flat record fields.
// Nested values keep their JSON form.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// avoid the %v exponent form for large integers
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		return fmt.Sprintf("%v", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
