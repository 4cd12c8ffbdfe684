package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/internal/analytics"
	"github.com/contentforge/contentforge-backend/internal/analytics/types"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

const (
	analyticsDateFormat    = "2006-01-02"
	defaultAnalyticsWindow = 30 * 24 * time.Hour
)

// AdminAnalytics serves the usage dashboard. Defaults to the trailing 30 days
// when no range is given.
func AdminAnalytics(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseAnalyticsRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Query(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func parseAnalyticsRange(r *http.Request) (types.UsageQueryRequest, error) {
	now := time.Now().UTC()
	req := types.UsageQueryRequest{
		Start: now.Add(-defaultAnalyticsWindow),
		End:   now,
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		start, err := time.Parse(analyticsDateFormat, raw)
		if err != nil {
			return types.UsageQueryRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start date")
		}
		req.Start = start
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
		end, err := time.Parse(analyticsDateFormat, raw)
		if err != nil {
			return types.UsageQueryRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid end date")
		}
		// Date-only ranges are inclusive of the end day.
		req.End = end.Add(24*time.Hour - time.Nanosecond)
	}
	if !req.End.After(req.Start) {
		return types.UsageQueryRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return req, nil
}
