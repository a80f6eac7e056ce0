package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoc_companion/internal/queue"
)

func setupService(t *testing.T, budget float64) (*RedisBillingService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisBillingService(client, budget)
	s.now = func() time.Time { return time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC) }
	return s, mr
}

func TestNoopService(t *testing.T) {
	s := NewNoopService()
	ctx := context.Background()

	assert.NoError(t, s.CheckBudget(ctx))
	assert.NoError(t, s.AddUsage(ctx, "gpt-4o-mini", 1000.99))

	spending, err := s.MonthlySpending(ctx)
	require.NoError(t, err)
	assert.Zero(t, spending.TotalUSD)
	assert.Empty(t, spending.ByModel)
}

func TestRedisBillingService_AddUsage(t *testing.T) {
	s, mr := setupService(t, 0)
	ctx := context.Background()

	require.NoError(t, s.AddUsage(ctx, "gpt-4o-mini", 0.00045))
	require.NoError(t, s.AddUsage(ctx, "gpt-4o-mini", 0.000637))
	require.NoError(t, s.AddUsage(ctx, "gpt-4o", 0.0075))

	assert.True(t, mr.Exists("cost:2025:03"))
	assert.Greater(t, mr.TTL("cost:2025:03"), 60*24*time.Hour)

	spending, err := s.MonthlySpending(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2025, spending.Year)
	assert.Equal(t, 3, spending.Month)
	assert.InDelta(t, 0.008587, spending.TotalUSD, 1e-9)
	assert.InDelta(t, 0.001087, spending.ByModel["gpt-4o-mini"], 1e-9)
	assert.InDelta(t, 0.0075, spending.ByModel["gpt-4o"], 1e-9)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, spending.Models())
}

func TestRedisBillingService_AddUsageValidation(t *testing.T) {
	s, _ := setupService(t, 0)
	ctx := context.Background()

	assert.Error(t, s.AddUsage(ctx, "", 1))
	assert.Error(t, s.AddUsage(ctx, "gpt-4o", -0.5))
}

func TestRedisBillingService_GetSpendingOtherMonth(t *testing.T) {
	s, _ := setupService(t, 0)

	spending, err := s.GetSpending(context.Background(), 2024, 12)
	require.NoError(t, err)
	assert.Zero(t, spending.TotalUSD)
	assert.Empty(t, spending.ByModel)
}

func TestRedisBillingService_Budget(t *testing.T) {
	s, _ := setupService(t, 0.01)
	ctx := context.Background()

	assert.NoError(t, s.CheckBudget(ctx))

	require.NoError(t, s.AddUsage(ctx, "gpt-4o", 0.0075))
	assert.NoError(t, s.CheckBudget(ctx))

	require.NoError(t, s.AddUsage(ctx, "gpt-4o", 0.0075))
	err := s.CheckBudget(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBudgetExceeded))

	require.NoError(t, s.ResetMonthlySpending(ctx))
	assert.NoError(t, s.CheckBudget(ctx))
}

func TestRedisBillingService_UnlimitedBudget(t *testing.T) {
	s, _ := setupService(t, 0)
	ctx := context.Background()

	require.NoError(t, s.AddUsage(ctx, "o1", 500))
	assert.NoError(t, s.CheckBudget(ctx))
}

func TestRedisBillingService_RedisDownAllowsRequests(t *testing.T) {
	s, mr := setupService(t, 1)
	mr.Close()

	assert.NoError(t, s.CheckBudget(context.Background()))
	assert.Error(t, s.AddUsage(context.Background(), "gpt-4o", 0.1))
}

func TestChargeWorker(t *testing.T) {
	s, _ := setupService(t, 0)
	ctx := context.Background()

	config := queue.DefaultConfig("billing-test")
	config.BatchTimeout = 10 * time.Millisecond
	w := NewChargeWorker(queue.NewMemoryQueue[Charge](config), queue.NewMemoryDeadLetterQueue[Charge](), s, config, nil)

	w.Start(ctx)
	for i := 0; i < 4; i++ {
		require.NoError(t, w.Enqueue(ctx, Charge{RequestID: "r", Model: "gpt-4o-mini", CostUSD: 0.00045, Timestamp: time.Now()}))
	}
	require.NoError(t, w.Stop(ctx))

	spending, err := s.MonthlySpending(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.0018, spending.TotalUSD, 1e-9)
}
