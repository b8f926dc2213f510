package app

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ittebagilani/harada/app/models"
)

const (
	FreePlanLimit   = 1
	PillarsPerPlan  = 8
	minGoalLen      = 3
	maxGoalLen      = 500
	maxPillarLen    = 100
	placeholderGoal = "TBD"
)

// PlanLifecycle decides which plan a goal or pillar write lands on and
// enforces the free-tier plan limit.
type PlanLifecycle struct {
	store Store
	now   func() time.Time
}

func NewPlanLifecycle(store Store, now func() time.Time) *PlanLifecycle {
	if now == nil {
		now = time.Now
	}
	return &PlanLifecycle{store: store, now: now}
}

// ResolveTargetPlan must run inside a transaction holding the user's row lock.
// With an explicit plan id the plan is used as-is; otherwise the active plan
// is reused while it has no pillars, and a new active plan is created when
// there is none or it is complete. Free users get UpgradeRequiredError once
// they own a plan that cannot be reused.
func (l *PlanLifecycle) ResolveTargetPlan(ctx context.Context, tx Store, user models.User, goal, planID string) (models.Plan, error) {
	if planID != "" {
		return tx.GetPlan(ctx, user.ID, planID)
	}

	active, err := tx.GetActivePlan(ctx, user.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := l.checkPlanLimit(ctx, tx, user); err != nil {
			return models.Plan{}, err
		}
		return tx.CreatePlan(ctx, user.ID, goalOrPlaceholder(goal))
	case err != nil:
		return models.Plan{}, err
	}

	pillars, err := tx.CountPillars(ctx, user.ID, active.ID)
	if err != nil {
		return models.Plan{}, err
	}
	if pillars == 0 {
		if goal != "" && goal != active.Goal {
			if err := tx.UpdatePlanGoal(ctx, user.ID, active.ID, goal); err != nil {
				return models.Plan{}, err
			}
			active.Goal = goal
		}
		return active, nil
	}

	if err := l.checkPlanLimit(ctx, tx, user); err != nil {
		return models.Plan{}, err
	}
	if err := tx.DeactivatePlans(ctx, user.ID); err != nil {
		return models.Plan{}, err
	}
	return tx.CreatePlan(ctx, user.ID, goalOrPlaceholder(goal))
}

func (l *PlanLifecycle) checkPlanLimit(ctx context.Context, tx Store, user models.User) error {
	if user.IsPremium {
		return nil
	}
	n, err := tx.CountPlans(ctx, user.ID)
	if err != nil {
		return err
	}
	if n >= FreePlanLimit {
		return UpgradeRequiredError{Limit: FreePlanLimit}
	}
	return nil
}

// SwitchActivePlan makes planID the user's only active plan.
func (l *PlanLifecycle) SwitchActivePlan(ctx context.Context, user models.User, planID string) (models.Plan, error) {
	var plan models.Plan
	err := l.store.InTx(ctx, func(tx Store) error {
		if err := tx.LockUser(ctx, user.ID); err != nil {
			return err
		}
		p, err := tx.GetPlan(ctx, user.ID, planID)
		if err != nil {
			return err
		}
		if err := tx.DeactivatePlans(ctx, user.ID); err != nil {
			return err
		}
		if err := tx.ActivatePlan(ctx, user.ID, p.ID); err != nil {
			return err
		}
		p.IsActive = true
		plan = p
		return nil
	})
	return plan, err
}

// SaveGoal validates the goal and writes it to the resolved target plan.
func (l *PlanLifecycle) SaveGoal(ctx context.Context, user models.User, goal string) (models.Plan, error) {
	goal, err := validateGoal(goal)
	if err != nil {
		return models.Plan{}, err
	}

	var plan models.Plan
	err = l.store.InTx(ctx, func(tx Store) error {
		if err := tx.LockUser(ctx, user.ID); err != nil {
			return err
		}
		p, err := l.ResolveTargetPlan(ctx, tx, user, goal, "")
		plan = p
		return err
	})
	return plan, err
}

// SavePillars validates exactly 8 titles, resolves the target plan and
// replaces its pillars in one transaction. goal is optional. Replacing
// existing pillars also releases today's daily selection, since its tasks
// are gone.
func (l *PlanLifecycle) SavePillars(ctx context.Context, user models.User, titles []string, planID, goal string) (models.Plan, []models.Pillar, error) {
	cleaned, err := validatePillars(titles)
	if err != nil {
		return models.Plan{}, nil, err
	}
	goal = strings.TrimSpace(goal)
	if goal != "" {
		if goal, err = validateGoal(goal); err != nil {
			return models.Plan{}, nil, err
		}
	}

	var (
		plan    models.Plan
		pillars []models.Pillar
	)
	err = l.store.InTx(ctx, func(tx Store) error {
		if err := tx.LockUser(ctx, user.ID); err != nil {
			return err
		}
		p, err := l.ResolveTargetPlan(ctx, tx, user, goal, planID)
		if err != nil {
			return err
		}
		existing, err := tx.CountPillars(ctx, user.ID, p.ID)
		if err != nil {
			return err
		}
		saved, err := tx.ReplacePillars(ctx, user.ID, p.ID, cleaned)
		if err != nil {
			return err
		}
		if existing > 0 {
			if err := tx.ResetDailySelection(ctx, user.ID, dayStartUTC(l.now())); err != nil {
				return err
			}
		}
		plan, pillars = p, saved
		return nil
	})
	return plan, pillars, err
}

// ListPlans returns every plan of the user, active first then newest.
func (l *PlanLifecycle) ListPlans(ctx context.Context, user models.User) ([]models.Plan, error) {
	plans, err := l.store.ListPlans(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	return plans, nil
}

// ActiveGoal returns the active plan's goal, or nil when there is no active plan.
func (l *PlanLifecycle) ActiveGoal(ctx context.Context, user models.User) (*string, error) {
	p, err := l.store.GetActivePlan(ctx, user.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p.Goal, nil
}

// ActivePlanTasks returns the active plan with its pillars and their tasks.
func (l *PlanLifecycle) ActivePlanTasks(ctx context.Context, user models.User) (models.Plan, []models.PillarTasks, error) {
	plan, err := l.store.GetActivePlan(ctx, user.ID)
	if err != nil {
		return models.Plan{}, nil, err
	}
	pillars, err := l.store.ListPillars(ctx, user.ID, plan.ID)
	if err != nil {
		return models.Plan{}, nil, err
	}
	tasks, err := l.store.ListPlanTasks(ctx, user.ID, plan.ID)
	if err != nil {
		return models.Plan{}, nil, err
	}

	byPillar := make(map[string][]models.Task, len(pillars))
	for _, t := range tasks {
		byPillar[t.PillarID] = append(byPillar[t.PillarID], t)
	}
	out := make([]models.PillarTasks, 0, len(pillars))
	for _, p := range pillars {
		pt := byPillar[p.ID]
		if pt == nil {
			pt = []models.Task{}
		}
		out = append(out, models.PillarTasks{PillarID: p.ID, PillarTitle: p.Title, Tasks: pt})
	}
	return plan, out, nil
}

func goalOrPlaceholder(goal string) string {
	if goal == "" {
		return placeholderGoal
	}
	return goal
}

func validateGoal(goal string) (string, error) {
	goal = strings.TrimSpace(goal)
	n := utf8.RuneCountInString(goal)
	if n < minGoalLen || n > maxGoalLen {
		return "", invalidInput("goal must be between %d and %d characters", minGoalLen, maxGoalLen)
	}
	return goal, nil
}

func validatePillars(titles []string) ([]string, error) {
	if len(titles) != PillarsPerPlan {
		return nil, invalidInput("exactly %d pillars are required", PillarsPerPlan)
	}
	out := make([]string, len(titles))
	for i, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" || utf8.RuneCountInString(t) > maxPillarLen {
			return nil, invalidInput("pillar %d must be between 1 and %d characters", i+1, maxPillarLen)
		}
		out[i] = t
	}
	return out, nil
}
