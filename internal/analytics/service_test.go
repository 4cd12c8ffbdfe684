package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contentforge/contentforge-backend/internal/analytics/types"
)

type fakeUsageService struct {
	lastReq  types.UsageQueryRequest
	response *types.UsageQueryResponse
	err      error
}

func (f *fakeUsageService) Query(ctx context.Context, req types.UsageQueryRequest) (*types.UsageQueryResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.response == nil {
		f.response = &types.UsageQueryResponse{}
	}
	return f.response, nil
}

type fakeAccountStats struct {
	byTier   []types.LabelValue
	byStatus []types.LabelValue
	flagged  int64
	err      error
}

func (f *fakeAccountStats) SubscribersByTier(ctx context.Context) ([]types.LabelValue, error) {
	return f.byTier, f.err
}

func (f *fakeAccountStats) SubscribersByStatus(ctx context.Context) ([]types.LabelValue, error) {
	return f.byStatus, f.err
}

func (f *fakeAccountStats) FlaggedUsers(ctx context.Context) (int64, error) {
	return f.flagged, f.err
}

func TestServiceQueryMergesSources(t *testing.T) {
	usage := &fakeUsageService{
		response: &types.UsageQueryResponse{
			GenerationsByDay: []types.TimeSeriesPoint{{Date: "2026-03-01", Value: 12}},
		},
	}
	stats := &fakeAccountStats{
		byTier:   []types.LabelValue{{Label: "pro", Value: 4}},
		byStatus: []types.LabelValue{{Label: "active", Value: 4}},
		flagged:  2,
	}
	srv := &service{usage: usage, stats: stats}

	now := time.Now().UTC()
	req := types.UsageQueryRequest{Start: now.Add(-24 * time.Hour), End: now}

	resp, err := srv.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !usage.lastReq.Start.Equal(req.Start) || !usage.lastReq.End.Equal(req.End) {
		t.Fatalf("unexpected request window: %v - %v", usage.lastReq.Start, usage.lastReq.End)
	}
	if len(resp.GenerationsByDay) != 1 || resp.GenerationsByDay[0].Value != 12 {
		t.Fatalf("expected usage series forwarded, got %+v", resp.GenerationsByDay)
	}
	if len(resp.SubscribersByTier) != 1 || resp.SubscribersByTier[0].Label != "pro" {
		t.Fatalf("expected tier counts merged, got %+v", resp.SubscribersByTier)
	}
	if resp.FlaggedUsers != 2 {
		t.Fatalf("expected flagged count merged, got %d", resp.FlaggedUsers)
	}
}

func TestServiceQueryPropagatesUsageError(t *testing.T) {
	want := errors.New("query failed")
	srv := &service{usage: &fakeUsageService{err: want}, stats: &fakeAccountStats{}}

	now := time.Now().UTC()
	resp, err := srv.Query(context.Background(), types.UsageQueryRequest{Start: now, End: now.Add(time.Minute)})
	if err != want {
		t.Fatalf("expected error %v, got %v", want, err)
	}
	if resp != nil {
		t.Fatalf("expected nil response on error")
	}
}

func TestServiceQueryPropagatesStatsError(t *testing.T) {
	want := errors.New("stats failed")
	srv := &service{usage: &fakeUsageService{}, stats: &fakeAccountStats{err: want}}

	now := time.Now().UTC()
	_, err := srv.Query(context.Background(), types.UsageQueryRequest{Start: now, End: now.Add(time.Minute)})
	if !errors.Is(err, want) {
		t.Fatalf("expected wrapped stats error, got %v", err)
	}
}
