package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ittebagilani/harada/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totalsOf(today time.Time, days ...[2]int) map[string]models.DayCompletion {
	out := map[string]models.DayCompletion{}
	for i, d := range days {
		key := dayKey(daysBack(today, i))
		out[key] = models.DayCompletion{Date: key, Completed: d[0], Total: d[1]}
	}
	return out
}

func TestComputeStreak(t *testing.T) {
	today := dayStartUTC(testNow)

	tests := []struct {
		name string
		days [][2]int // completed, total; index 0 is today
		want int
	}{
		{"no data", nil, 0},
		{"perfect today only", [][2]int{{5, 5}}, 1},
		{"exactly eighty percent counts", [][2]int{{5, 5}, {4, 5}, {4, 5}}, 3},
		{"empty day ends the chain", [][2]int{{5, 5}, {4, 5}, {6, 7}, {0, 0}, {5, 5}}, 3},
		{"failed day ends the chain", [][2]int{{5, 5}, {4, 5}, {3, 5}, {0, 5}}, 2},
		{"three of four is below threshold", [][2]int{{3, 4}, {5, 5}}, 0},
		{"today failing hides earlier days", [][2]int{{0, 6}, {6, 6}, {6, 6}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStreak(totalsOf(today, tt.days...), today, streakHorizonDays)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeStreak_MissingDayBreaksChain(t *testing.T) {
	today := dayStartUTC(testNow)
	totals := totalsOf(today, [2]int{5, 5}, [2]int{5, 5})
	older := dayKey(daysBack(today, 3))
	totals[older] = models.DayCompletion{Date: older, Completed: 5, Total: 5}

	assert.Equal(t, 2, ComputeStreak(totals, today, streakHorizonDays))
}

func TestComputeStreak_StopsAtHorizon(t *testing.T) {
	today := dayStartUTC(testNow)
	days := make([][2]int, 400)
	for i := range days {
		days[i] = [2]int{7, 7}
	}
	assert.Equal(t, streakHorizonDays, ComputeStreak(totalsOf(today, days...), today, streakHorizonDays))
}

func TestWeeklyCompletions_AlwaysSevenDaysOldestFirst(t *testing.T) {
	today := dayStartUTC(testNow)
	totals := totalsOf(today, [2]int{2, 5}, [2]int{0, 0}, [2]int{6, 6})

	got := WeeklyCompletions(totals, today)
	want := []models.DayCompletion{
		{Date: "2024-03-09"},
		{Date: "2024-03-10"},
		{Date: "2024-03-11"},
		{Date: "2024-03-12"},
		{Date: "2024-03-13", Completed: 6, Total: 6},
		{Date: "2024-03-14"},
		{Date: "2024-03-15", Completed: 2, Total: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WeeklyCompletions mismatch (-want +got):\n%s", diff)
	}
}

func TestProgress_ReadsStore(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	user := store.seedUser("user_1", false)
	today := dayStartUTC(testNow)

	store.seedDay(user.ID, today, 5, 5)
	store.seedDay(user.ID, daysBack(today, 1), 4, 5)
	store.seedDay(user.ID, daysBack(today, 2), 1, 5)
	store.seedDay(user.ID, daysBack(today, 9), 5, 5)
	store.seedDay(store.seedUser("other", false).ID, daysBack(today, 3), 5, 5)

	p := NewProgress(store, fixedClock(testNow))

	streak, err := p.Streak(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)

	weekly, err := p.Weekly(ctx, user)
	require.NoError(t, err)
	require.Len(t, weekly, weekDays)
	assert.Equal(t, models.DayCompletion{Date: "2024-03-15", Completed: 5, Total: 5}, weekly[6])
	assert.Equal(t, models.DayCompletion{Date: "2024-03-13", Completed: 1, Total: 5}, weekly[4])
	assert.Equal(t, models.DayCompletion{Date: "2024-03-12"}, weekly[3], "other users' rows are not counted")
}

func TestProgress_StoreError(t *testing.T) {
	store := newFakeStore()
	user := store.seedUser("user_1", false)
	boom := errors.New("boom")
	store.failures["DailyTotals"] = boom

	p := NewProgress(store, fixedClock(testNow))
	_, err := p.Streak(context.Background(), user)
	assert.ErrorIs(t, err, boom)
	_, err = p.Weekly(context.Background(), user)
	assert.ErrorIs(t, err, boom)
}
