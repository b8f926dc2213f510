package app

import (
	"context"
	"time"

	"github.com/ittebagilani/harada/app/models"
)

const (
	streakHorizonDays = 365
	weekDays          = 7
)

// Progress reads the per-day completion aggregates.
type Progress struct {
	store Store
	now   func() time.Time
}

func NewProgress(store Store, now func() time.Time) *Progress {
	if now == nil {
		now = time.Now
	}
	return &Progress{store: store, now: now}
}

func (p *Progress) Streak(ctx context.Context, user models.User) (int, error) {
	today := dayStartUTC(p.now())
	totals, err := p.store.DailyTotals(ctx, user.ID, daysBack(today, streakHorizonDays-1), today)
	if err != nil {
		return 0, err
	}
	return ComputeStreak(totals, today, streakHorizonDays), nil
}

func (p *Progress) Weekly(ctx context.Context, user models.User) ([]models.DayCompletion, error) {
	today := dayStartUTC(p.now())
	totals, err := p.store.DailyTotals(ctx, user.ID, daysBack(today, weekDays-1), today)
	if err != nil {
		return nil, err
	}
	return WeeklyCompletions(totals, today), nil
}

// ComputeStreak counts consecutive days ending today with at least 80% of
// their tasks completed. A day with no tasks ends the streak.
func ComputeStreak(totals map[string]models.DayCompletion, today time.Time, horizon int) int {
	streak := 0
	for i := 0; i < horizon; i++ {
		day, ok := totals[dayKey(daysBack(today, i))]
		if !ok || day.Total == 0 {
			break
		}
		// completed/total >= 0.8 without floating point
		if 5*day.Completed < 4*day.Total {
			break
		}
		streak++
	}
	return streak
}

// WeeklyCompletions returns today and the six prior days, oldest first,
// with zeros for days without tasks.
func WeeklyCompletions(totals map[string]models.DayCompletion, today time.Time) []models.DayCompletion {
	out := make([]models.DayCompletion, 0, weekDays)
	for i := weekDays - 1; i >= 0; i-- {
		key := dayKey(daysBack(today, i))
		day, ok := totals[key]
		if !ok {
			day = models.DayCompletion{Date: key}
		}
		day.Date = key
		out = append(out, day)
	}
	return out
}
