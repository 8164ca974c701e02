package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

// decodeJSON decodes a single JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// decodePatch reads a JSON object as raw fields so handlers can tell an absent
// field from an explicit null. Keys outside allowed are rejected.
func decodePatch(r *http.Request, allowed ...string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, errInvalidBody
	}
	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[k] = true
	}
	for k := range fields {
		if !known[k] {
			return nil, fmt.Errorf("%w: unknown field %q", errInvalidBody, k)
		}
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseTime accepts RFC3339 or a YYYY-MM-DD date in loc. With endOfDay a bare
// date resolves to the last microsecond of that day.
func parseTime(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", raw)
	}
	if endOfDay {
		return d.AddDate(0, 0, 1).Add(-time.Microsecond), nil
	}
	return d, nil
}

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}

func errField(field string) error {
	return fmt.Errorf("invalid %s", field)
}
