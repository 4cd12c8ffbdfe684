package analytics

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/internal/analytics/query"
	"github.com/contentforge/contentforge-backend/internal/analytics/types"
	"github.com/contentforge/contentforge-backend/pkg/bigquery"
)

// Service assembles the admin analytics dashboard: usage history comes from
// the BigQuery event warehouse, the current subscriber mix from Postgres.
type Service interface {
	Query(ctx context.Context, req types.UsageQueryRequest) (*types.UsageQueryResponse, error)
}

type accountStats interface {
	SubscribersByTier(ctx context.Context) ([]types.LabelValue, error)
	SubscribersByStatus(ctx context.Context) ([]types.LabelValue, error)
	FlaggedUsers(ctx context.Context) (int64, error)
}

type service struct {
	usage query.UsageService
	stats accountStats
}

// NewService builds an analytics service backed by BigQuery and Postgres.
func NewService(client *bigquery.Client, db *gorm.DB, project, dataset, table string) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}

	usage, err := query.NewUsageService(client, project, dataset, table)
	if err != nil {
		return nil, err
	}
	stats, err := query.NewAccountStats(db)
	if err != nil {
		return nil, err
	}

	return &service{usage: usage, stats: stats}, nil
}

func (s *service) Query(ctx context.Context, req types.UsageQueryRequest) (*types.UsageQueryResponse, error) {
	resp, err := s.usage.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	byTier, err := s.stats.SubscribersByTier(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribers by tier: %w", err)
	}
	byStatus, err := s.stats.SubscribersByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribers by status: %w", err)
	}
	flagged, err := s.stats.FlaggedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("flagged users: %w", err)
	}

	resp.SubscribersByTier = byTier
	resp.SubscribersByStatus = byStatus
	resp.FlaggedUsers = flagged
	return resp, nil
}
