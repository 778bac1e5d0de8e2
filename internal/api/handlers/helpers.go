package handlers

import (
	"net/http"
	"time"

	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/utils"
)

const dateLayout = "2006-01-02"

// writeServiceError sends an AppError as-is and wraps anything else as a
// 500 with the given message
func writeServiceError(w http.ResponseWriter, err error, message string) {
	if appErr, ok := err.(*errors.AppError); ok {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteError(w, errors.Internal(message, err))
}

// parseDate parses a YYYY-MM-DD value, returning ok=false when empty
func parseDate(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// dateRangeQuery reads from/to query parameters, applying defaults when
// either is absent. The fallback range is defaultDays ending today.
func dateRangeQuery(r *http.Request, defaultDays int) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)

	from, ok, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		from = now.AddDate(0, 0, -defaultDays+1)
	}

	to, ok, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		to = now
	}

	return from, to, nil
}
