package api

import (
	"fmt"
	"net/url"
	"strconv"
)

// parseIntParam reads an integer query parameter. Absent values return def.
// Values below min are rejected; values above max are clamped to max.
func parseIntParam(q url.Values, name string, def, min, max int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < min {
		return 0, fmt.Errorf("%s must be at least %d", name, min)
	}
	if max > 0 && v > max {
		v = max
	}
	return v, nil
}

// parseBoolParam reads a boolean query parameter. Absent values return def.
func parseBoolParam(q url.Values, name string, def bool) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return v, nil
}
