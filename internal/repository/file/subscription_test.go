package file

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flexprice/revenue/internal/domain/plan"
	"github.com/flexprice/revenue/internal/domain/subscription"
	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRepository(t *testing.T) {
	validator.NewValidator()
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "late.yaml", `id: sub-late
name: Late
startDate: 2025-03-01T00:00:00Z
subscriberId: org-late
plan:
  id: plan-a
`)
	writeFile(t, dir, "early.json", `{
  "id": "sub-early",
  "name": "Early",
  "startDate": "2025-01-01T00:00:00Z",
  "subscriberId": "org-early",
  "plan": {"id": "plan-a"},
  "relatedParties": [{"id": "org-early", "role": "Seller", "name": "Early Shop"}]
}`)
	writeFile(t, dir, "other.yaml", `id: sub-other
startDate: 2024-06-01T00:00:00Z
subscriberId: org-other
plan:
  id: plan-b
`)

	repo, err := NewSubscriptionRepository(dir, logger.NewNopLogger())
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"sub-other", "sub-early", "sub-late"}, []string{all[0].ID, all[1].ID, all[2].ID})

	byPlan, err := repo.ListByPlan(ctx, "plan-a")
	require.NoError(t, err)
	require.Len(t, byPlan, 2)
	assert.Equal(t, "sub-early", byPlan[0].ID)

	none, err := repo.ListByPlan(ctx, "plan-z")
	require.NoError(t, err)
	assert.Empty(t, none)

	early, err := repo.Get(ctx, "sub-early")
	require.NoError(t, err)
	require.NotNil(t, early.Seller())
	assert.Equal(t, "Early Shop", early.Seller().Name)
	assert.True(t, early.StartDate.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))

	_, err = repo.Get(ctx, "missing")
	assert.True(t, ierr.IsNotFound(err))
}

func TestDecodeSubscription(t *testing.T) {
	validator.NewValidator()

	tests := []struct {
		name    string
		data    string
		format  plan.Format
		wantErr bool
	}{
		{
			name:   "yaml",
			data:   "id: s\nstartDate: 2025-01-01T00:00:00Z\nsubscriberId: o\nplan:\n  id: p\n",
			format: plan.FormatYAML,
		},
		{
			name:    "missing subscriber",
			data:    `{"id": "s", "startDate": "2025-01-01T00:00:00Z", "plan": {"id": "p"}}`,
			format:  plan.FormatJSON,
			wantErr: true,
		},
		{
			name:    "malformed",
			data:    `{"id": `,
			format:  plan.FormatJSON,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := DecodeSubscription([]byte(tt.data), tt.format)
			if tt.wantErr {
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "s", sub.ID)
		})
	}
}

func TestSubscriptionFixtures(t *testing.T) {
	validator.NewValidator()
	repo, err := NewSubscriptionRepository(filepath.Join(fixturesDir, "subscriptions"), logger.NewNopLogger())
	require.NoError(t, err)

	sub, err := repo.Get(context.Background(), "sub-acme")
	require.NoError(t, err)
	assert.Equal(t, "plan-marketplace", sub.Plan.ID)
	assert.Equal(t, subscription.PartyRoleSeller, sub.Seller().Role)
	assert.Equal(t, "EU", sub.Characteristics["region"])
}
