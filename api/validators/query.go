package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/sabrositas/pos-backend/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidInput, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidInput, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

func ParseQueryBool(r *http.Request, key string, defaultVal bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeInvalidInput, "query parameter must be a boolean").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParseTimeWindow resolves ?date=YYYY-MM-DD or ?start=&end= (RFC 3339)
// into a half-open [start, end) window. A bare date covers that UTC day.
func ParseTimeWindow(r *http.Request) (time.Time, time.Time, error) {
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeInvalidInput, "date must be formatted YYYY-MM-DD").WithDetails(map[string]any{"field": "date"})
		}
		start := day.UTC()
		return start, start.Add(24 * time.Hour), nil
	}

	rawStart := strings.TrimSpace(query.Get("start"))
	rawEnd := strings.TrimSpace(query.Get("end"))
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeInvalidInput, "either date or start and end are required")
	}
	start, err := parseFlexibleTime(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeInvalidInput, "start must be RFC 3339 or YYYY-MM-DD").WithDetails(map[string]any{"field": "start"})
	}
	end, err := parseFlexibleTime(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeInvalidInput, "end must be RFC 3339 or YYYY-MM-DD").WithDetails(map[string]any{"field": "end"})
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeInvalidInput, "end must be after start")
	}
	return start, end, nil
}

func parseFlexibleTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
