package app

import (
	"context"
	"errors"
	"time"

	"github.com/ittebagilani/harada/app/llm"
	"github.com/ittebagilani/harada/app/models"
	"go.uber.org/zap"
)

const defaultGoal = "Personal growth"

// AIGenerator produces pillar titles and per-pillar tasks. *llm.Generator
// satisfies it.
type AIGenerator interface {
	GeneratePillars(ctx context.Context, goal string, answers []models.Answer) ([]string, error)
	GenerateTasks(ctx context.Context, goal string, pillars []string, answers []models.Answer) (map[string][]string, error)
}

// PlanGenerator runs AI generation against the user's stored answers and
// active plan, persisting the results.
type PlanGenerator struct {
	store     Store
	ai        AIGenerator
	lifecycle *PlanLifecycle
	limiter   GenerationLimiter
	logger    *zap.Logger
	now       func() time.Time
}

func NewPlanGenerator(store Store, ai AIGenerator, lifecycle *PlanLifecycle, limiter GenerationLimiter, logger *zap.Logger, now func() time.Time) *PlanGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &PlanGenerator{store: store, ai: ai, lifecycle: lifecycle, limiter: limiter, logger: logger, now: now}
}

// PillarResult is the outcome of pillar generation. Plan is set when saved.
type PillarResult struct {
	Pillars []string     `json:"pillars"`
	Plan    *models.Plan `json:"plan,omitempty"`
}

// GeneratePillars asks for 8 pillars for the active goal. With save, they
// replace the pillars of the active plan, or of a newly resolved plan when
// there is none.
func (g *PlanGenerator) GeneratePillars(ctx context.Context, user models.User, save bool) (PillarResult, error) {
	if err := allowGeneration(ctx, g.limiter, user.ID); err != nil {
		return PillarResult{}, err
	}

	answers, err := g.store.ListAnswers(ctx, user.ID)
	if err != nil {
		return PillarResult{}, err
	}
	if len(answers) == 0 {
		return PillarResult{}, notFound("no answers found")
	}

	goal := defaultGoal
	planID := ""
	active, err := g.store.GetActivePlan(ctx, user.ID)
	switch {
	case err == nil:
		planID = active.ID
		if active.Goal != "" && active.Goal != placeholderGoal {
			goal = active.Goal
		}
	case !errors.Is(err, ErrNotFound):
		return PillarResult{}, err
	}

	pillars, err := g.ai.GeneratePillars(ctx, goal, answers)
	if err != nil {
		return PillarResult{}, wrapAIError(err)
	}

	result := PillarResult{Pillars: pillars}
	if save {
		plan, _, err := g.lifecycle.SavePillars(ctx, user, pillars, planID, "")
		if err != nil {
			return PillarResult{}, err
		}
		result.Plan = &plan
	}
	return result, nil
}

// GenerateTasks asks for 8 tasks per pillar of the active plan and replaces
// them in one transaction. Today's daily selection is released so the next
// read draws from the new tasks.
func (g *PlanGenerator) GenerateTasks(ctx context.Context, user models.User) ([]models.PillarTasks, error) {
	if err := allowGeneration(ctx, g.limiter, user.ID); err != nil {
		return nil, err
	}

	plan, err := g.store.GetActivePlan(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pillars, err := g.store.ListPillars(ctx, user.ID, plan.ID)
	if err != nil {
		return nil, err
	}
	if len(pillars) == 0 {
		return nil, notFound("no pillars found")
	}
	answers, err := g.store.ListAnswers(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(pillars))
	for i, p := range pillars {
		titles[i] = p.Title
	}

	tasks, err := g.ai.GenerateTasks(ctx, plan.Goal, titles, answers)
	if err != nil {
		return nil, wrapAIError(err)
	}

	today := dayStartUTC(g.now())
	err = g.store.InTx(ctx, func(tx Store) error {
		for _, p := range pillars {
			if err := tx.ReplaceTasks(ctx, user.ID, p.ID, tasks[p.Title]); err != nil {
				return err
			}
		}
		return tx.ResetDailySelection(ctx, user.ID, today)
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("tasks generated", zap.String("user_id", user.ID), zap.String("plan_id", plan.ID))
	_, out, err := g.lifecycle.ActivePlanTasks(ctx, user)
	return out, err
}

func wrapAIError(err error) error {
	var invalidAI *llm.InvalidResponseError
	if errors.As(err, &invalidAI) {
		return err
	}
	return upstream("AI generation failed", err)
}
