package market

import (
	"encoding/json"
	"strconv"
	"strings"
)

// parseNumber extracts a float from a raw JSON value that may be a number or
// a quoted number. ok is false for null, absent or unparseable values.
func parseNumber(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// rawTruthy mirrors loose truthiness for raw JSON scalars: null, empty
// strings and numeric zero are false, everything else true.
func rawTruthy(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == `""` {
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return true
}

// parseStringList extracts a list of strings from a raw JSON value that may
// be an array of strings, an array of numbers, or a JSON-encoded string of
// either. Anything else yields nil.
func parseStringList(raw json.RawMessage) []string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	if s == "" || s[0] != '[' {
		return nil
	}

	var elems []any
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, v := range elems {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, formatFloat(t))
		default:
			out = append(out, "")
		}
	}
	return out
}

// parseNumberMap extracts a string -> number object from a raw JSON value
// that may be an object or a JSON-encoded string of one. Values may be
// numbers or quoted numbers; entries that are neither are dropped. Anything
// else yields nil.
func parseNumberMap(raw json.RawMessage) map[string]float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	if s == "" || s[0] != '{' {
		return nil
	}

	var elems map[string]any
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil
	}
	out := make(map[string]float64, len(elems))
	for k, v := range elems {
		switch t := v.(type) {
		case float64:
			out[k] = t
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				out[k] = f
			}
		}
	}
	return out
}

// formatFloat renders a float with the shortest representation that round
// trips, matching how odds are echoed back into outcome price lists.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
