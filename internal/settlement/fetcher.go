package settlement

import (
	"context"
	"fmt"

	"github.com/ksred/studio-payroll/internal/apiclient"
	"github.com/ksred/studio-payroll/internal/types"
)

// Fetcher retrieves the settlement rows for one period
type Fetcher interface {
	FetchSettlements(ctx context.Context, period Period) ([]types.SettlementRow, error)
}

// RemoteFetcher reads settlements from the REST API
type RemoteFetcher struct {
	client *apiclient.Client
}

// NewRemoteFetcher creates a fetcher on top of the shared API client
func NewRemoteFetcher(client *apiclient.Client) *RemoteFetcher {
	return &RemoteFetcher{client: client}
}

// FetchSettlements issues GET /settlements/{year}/{month}. Rows come back in
// backend order. Every failure wraps ErrDataUnavailable; a 401 also wraps
// apiclient.ErrAuthExpired.
func (f *RemoteFetcher) FetchSettlements(ctx context.Context, period Period) ([]types.SettlementRow, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	var rows []types.SettlementRow
	if err := f.client.Get(ctx, "/settlements/"+period.Path(), &rows); err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrDataUnavailable, period, err)
	}
	if rows == nil {
		rows = []types.SettlementRow{}
	}
	return rows, nil
}
