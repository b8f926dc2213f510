package llm

import (
	"context"
	"fmt"

	"github.com/ittebagilani/harada/app/models"
	"go.uber.org/zap"
)

// Generator asks a Completer for pillars and tasks and validates the replies.
type Generator struct {
	completer       Completer
	logger          *zap.Logger
	pillarMaxTokens int
	taskMaxTokens   int
}

func NewGenerator(c Completer, pillarMaxTokens, taskMaxTokens int, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pillarMaxTokens <= 0 {
		pillarMaxTokens = 1000
	}
	if taskMaxTokens <= 0 {
		taskMaxTokens = 4000
	}
	return &Generator{
		completer:       c,
		logger:          logger,
		pillarMaxTokens: pillarMaxTokens,
		taskMaxTokens:   taskMaxTokens,
	}
}

// GeneratePillars returns 8 pillar titles for the goal.
func (g *Generator) GeneratePillars(ctx context.Context, goal string, answers []models.Answer) ([]string, error) {
	raw, err := g.completer.Complete(ctx, pillarPrompt(goal, answers), g.pillarMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate pillars: %w", err)
	}
	pillars, err := ParsePillars(raw)
	if err != nil {
		g.logger.Warn("pillar reply rejected", zap.Error(err), zap.String("raw", truncate(raw, 512)))
		return nil, err
	}
	return pillars, nil
}

// GenerateTasks returns 8 tasks per pillar, keyed by the given pillar titles.
func (g *Generator) GenerateTasks(ctx context.Context, goal string, pillars []string, answers []models.Answer) (map[string][]string, error) {
	raw, err := g.completer.Complete(ctx, taskPrompt(goal, pillars, answers), g.taskMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate tasks: %w", err)
	}
	tasks, err := ParseTasks(raw, pillars)
	if err != nil {
		g.logger.Warn("task reply rejected", zap.Error(err), zap.String("raw", truncate(raw, 512)))
		return nil, err
	}
	return tasks, nil
}
