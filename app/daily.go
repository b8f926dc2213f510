package app

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/ittebagilani/harada/app/models"
	"go.uber.org/zap"
)

const (
	minDailyTasks   = 5
	dailyTaskSpread = 3 // target size is 5, 6 or 7
)

// DailySelector materializes at most one set of tasks per user and UTC day.
type DailySelector struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	intn   func(int) int
}

// NewDailySelector uses the wall clock and math/rand when now or intn are nil.
func NewDailySelector(store Store, logger *zap.Logger, now func() time.Time, intn func(int) int) *DailySelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if intn == nil {
		intn = rand.Intn
	}
	return &DailySelector{store: store, logger: logger, now: now, intn: intn}
}

// TodayTasks returns today's tasks, drawing them on the first call of the day.
func (d *DailySelector) TodayTasks(ctx context.Context, user models.User) ([]models.DailyTask, error) {
	today := dayStartUTC(d.now())

	existing, err := d.store.ListDailyTasks(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	plan, err := d.store.GetActivePlan(ctx, user.ID)
	if errors.Is(err, ErrNotFound) {
		return []models.DailyTask{}, nil
	}
	if err != nil {
		return nil, err
	}

	pool, err := d.store.ListPlanTasks(ctx, user.ID, plan.ID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return []models.DailyTask{}, nil
	}

	picked := sampleTasks(pool, d.intn)
	claimed, err := d.store.ClaimDailySelection(ctx, user.ID, today, picked)
	if err != nil {
		return nil, err
	}
	if !claimed {
		d.logger.Debug("daily selection already claimed", zap.String("user_id", user.ID), zap.String("day", dayKey(today)))
	}

	tasks, err := d.store.ListDailyTasks(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.DailyTask{}
	}
	return tasks, nil
}

// ToggleCompletion sets the completion state of one of the user's daily tasks.
func (d *DailySelector) ToggleCompletion(ctx context.Context, user models.User, dailyTaskID string, completed bool) (models.DailyTask, error) {
	return d.store.ToggleDailyTask(ctx, user.ID, dailyTaskID, completed, d.now())
}

// sampleTasks draws min(5+U{0,1,2}, len(pool)) tasks without replacement
// using a Fisher-Yates shuffle over pool indexes. The picked tasks keep
// their pool order. pool is not modified.
func sampleTasks(pool []models.Task, intn func(int) int) []models.Task {
	n := minDailyTasks + intn(dailyTaskSpread)
	if n > len(pool) {
		n = len(pool)
	}

	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := intn(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	idx = idx[:n]
	sort.Ints(idx)

	out := make([]models.Task, n)
	for i, k := range idx {
		out[i] = pool[k]
	}
	return out
}
