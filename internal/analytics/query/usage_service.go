package query

import (
	"context"
	"fmt"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/contentforge/contentforge-backend/internal/analytics/types"
	"github.com/contentforge/contentforge-backend/pkg/bigquery"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
)

const (
	generationsByDaySQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  COUNT(*) AS value
FROM %s
WHERE occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	unitsByDaySQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  SUM(COALESCE(units_consumed, 0)) AS value
FROM %s
WHERE occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	generationsByTypeSQL = `
SELECT content_type AS label, COUNT(*) AS value
FROM %s
WHERE occurred_at BETWEEN @start AND @end
GROUP BY content_type
ORDER BY value DESC
`
)

// UsageService provides admin dashboard data from BigQuery usage_events.
type UsageService interface {
	Query(ctx context.Context, req types.UsageQueryRequest) (*types.UsageQueryResponse, error)
}

type usageService struct {
	client   *bigquery.Client
	tableRef string
}

// NewUsageService builds a service backed by BigQuery.
func NewUsageService(client *bigquery.Client, project, dataset, table string) (UsageService, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if project == "" || dataset == "" || table == "" {
		return nil, fmt.Errorf("project, dataset, and table are required")
	}
	return &usageService{
		client:   client,
		tableRef: fmt.Sprintf("`%s.%s.%s`", project, dataset, table),
	}, nil
}

func (s *usageService) Query(ctx context.Context, req types.UsageQueryRequest) (*types.UsageQueryResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	params := baseParams(req)

	generations, err := s.querySeries(ctx, fmt.Sprintf(generationsByDaySQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	units, err := s.querySeries(ctx, fmt.Sprintf(unitsByDaySQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	byType, err := s.queryLabels(ctx, fmt.Sprintf(generationsByTypeSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	return &types.UsageQueryResponse{
		GenerationsByDay:  generations,
		GenerationsByType: byType,
		UnitsByDay:        units,
	}, nil
}

func validateRequest(req types.UsageQueryRequest) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

func baseParams(req types.UsageQueryRequest) []cloudbigquery.QueryParameter {
	return []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start},
		{Name: "end", Value: req.End},
	}
}

func (s *usageService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}

	var points []types.TimeSeriesPoint
	for {
		var row struct {
			Day   string `bigquery:"day"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading series row: %w", err)
		}
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Value: row.Value})
	}
	return points, nil
}

func (s *usageService) queryLabels(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.LabelValue, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}

	var result []types.LabelValue
	for {
		var row struct {
			Label string `bigquery:"label"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading label row: %w", err)
		}
		result = append(result, types.LabelValue{Label: row.Label, Value: row.Value})
	}
	return result, nil
}
