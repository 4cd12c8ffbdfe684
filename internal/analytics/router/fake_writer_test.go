package router

import (
	"context"

	"github.com/contentforge/contentforge-backend/internal/analytics/types"
)

type fakeWriter struct {
	usage   []types.UsageEventRow
	account []types.AccountEventRow
}

func (f *fakeWriter) InsertUsage(_ context.Context, row types.UsageEventRow) error {
	f.usage = append(f.usage, row)
	return nil
}

func (f *fakeWriter) InsertAccount(_ context.Context, row types.AccountEventRow) error {
	f.account = append(f.account, row)
	return nil
}
