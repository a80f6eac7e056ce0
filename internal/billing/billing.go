package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBudgetExceeded is returned when the monthly budget is spent
var ErrBudgetExceeded = errors.New("monthly budget exceeded")

// totalField holds the all-model sum in the monthly hash
const totalField = "_total"

// spendTTL keeps a month of spend around for the following month
const spendTTL = 62 * 24 * time.Hour

// Spending is the model spend of one calendar month
type Spending struct {
	Year      int                `json:"year"`
	Month     int                `json:"month"`
	TotalUSD  float64            `json:"total_usd"`
	BudgetUSD float64            `json:"budget_usd,omitempty"`
	ByModel   map[string]float64 `json:"by_model"`
}

// Models returns the model ids with spend, sorted
func (s *Spending) Models() []string {
	ids := make([]string, 0, len(s.ByModel))
	for id := range s.ByModel {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Service tracks model spend and enforces the monthly budget.
type Service interface {
	// CheckBudget returns ErrBudgetExceeded when no budget is left
	CheckBudget(ctx context.Context) error
	AddUsage(ctx context.Context, model string, costUSD float64) error
	MonthlySpending(ctx context.Context) (*Spending, error)
}

// NoopService does not enforce budgets and discards usage.
type NoopService struct{}

func NewNoopService() *NoopService {
	return &NoopService{}
}

func (s *NoopService) CheckBudget(ctx context.Context) error {
	return nil
}

func (s *NoopService) AddUsage(ctx context.Context, model string, costUSD float64) error {
	return nil
}

func (s *NoopService) MonthlySpending(ctx context.Context) (*Spending, error) {
	now := time.Now().UTC()
	return &Spending{Year: now.Year(), Month: int(now.Month()), ByModel: map[string]float64{}}, nil
}

// RedisBillingService keeps monthly spend per model in a Redis hash
// "cost:<year>:<month>".
type RedisBillingService struct {
	redis     *redis.Client
	budgetUSD float64 // 0 = unlimited
	now       func() time.Time
}

// NewRedisBillingService creates a new billing service
func NewRedisBillingService(client *redis.Client, monthlyBudgetUSD float64) *RedisBillingService {
	return &RedisBillingService{
		redis:     client,
		budgetUSD: monthlyBudgetUSD,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckBudget compares this month's total with the budget. Redis errors
// let the request through.
func (s *RedisBillingService) CheckBudget(ctx context.Context) error {
	if s.budgetUSD <= 0 {
		return nil
	}

	spending, err := s.MonthlySpending(ctx)
	if err != nil {
		return nil
	}
	if spending.TotalUSD >= s.budgetUSD {
		return fmt.Errorf("%w: spent %.6f of %.2f USD", ErrBudgetExceeded, spending.TotalUSD, s.budgetUSD)
	}
	return nil
}

var addUsageScript = redis.NewScript(`
	local key = KEYS[1]
	local model = ARGV[1]
	local cost = ARGV[2]
	local ttl = tonumber(ARGV[3])

	redis.call('HINCRBYFLOAT', key, model, cost)
	local total = redis.call('HINCRBYFLOAT', key, ARGV[4], cost)
	redis.call('EXPIRE', key, ttl)
	return total
`)

// AddUsage adds cost to the model's and the month's running totals
func (s *RedisBillingService) AddUsage(ctx context.Context, model string, costUSD float64) error {
	if model == "" {
		return fmt.Errorf("model is required")
	}
	if costUSD < 0 {
		return fmt.Errorf("negative cost %f", costUSD)
	}

	now := s.now()
	key := monthlyKey(now.Year(), int(now.Month()))
	cost := strconv.FormatFloat(costUSD, 'f', -1, 64)
	ttl := int(spendTTL / time.Second)

	if err := addUsageScript.Run(ctx, s.redis, []string{key}, model, cost, ttl, totalField).Err(); err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}
	return nil
}

// MonthlySpending returns the current month's spend
func (s *RedisBillingService) MonthlySpending(ctx context.Context) (*Spending, error) {
	now := s.now()
	return s.GetSpending(ctx, now.Year(), int(now.Month()))
}

// GetSpending returns spend for a specific month
func (s *RedisBillingService) GetSpending(ctx context.Context, year, month int) (*Spending, error) {
	values, err := s.redis.HGetAll(ctx, monthlyKey(year, month)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get spending: %w", err)
	}

	spending := &Spending{
		Year:      year,
		Month:     month,
		BudgetUSD: s.budgetUSD,
		ByModel:   make(map[string]float64, len(values)),
	}
	for field, raw := range values {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if field == totalField {
			spending.TotalUSD = v
			continue
		}
		spending.ByModel[field] = v
	}
	return spending, nil
}

// ResetMonthlySpending clears the current month
func (s *RedisBillingService) ResetMonthlySpending(ctx context.Context) error {
	now := s.now()
	return s.redis.Del(ctx, monthlyKey(now.Year(), int(now.Month()))).Err()
}

func monthlyKey(year, month int) string {
	return fmt.Sprintf("cost:%d:%02d", year, month)
}
