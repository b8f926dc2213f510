package app

import (
	"context"
	"time"

	"github.com/ittebagilani/harada/app/models"
)

// Store is the persistence contract used by the services. Every child-entity
// method is scoped by the owning user id. Implementations return ErrNotFound
// (possibly wrapped) when a scoped row does not exist.
type Store interface {
	// InTx runs fn against a Store bound to a single transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	UpsertUser(ctx context.Context, u models.User) (models.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (models.User, error)
	// LockUser takes a row lock on the user for the rest of the transaction.
	LockUser(ctx context.Context, userID string) error
	CompleteOnboarding(ctx context.Context, userID string) error
	SetStripeCustomer(ctx context.Context, userID, customerID string) error
	MarkPremiumFromCheckout(ctx context.Context, clerkID, customerID, subscriptionID string) (bool, error)
	BackfillSubscription(ctx context.Context, customerID, subscriptionID string) error
	SetPremiumByCustomer(ctx context.Context, customerID string, premium bool) error

	UpsertAnswer(ctx context.Context, userID string, questionID, value int) error
	ListAnswers(ctx context.Context, userID string) ([]models.Answer, error)

	GetActivePlan(ctx context.Context, userID string) (models.Plan, error)
	GetPlan(ctx context.Context, userID, planID string) (models.Plan, error)
	ListPlans(ctx context.Context, userID string) ([]models.Plan, error)
	CountPlans(ctx context.Context, userID string) (int, error)
	CountPillars(ctx context.Context, userID, planID string) (int, error)
	CreatePlan(ctx context.Context, userID, goal string) (models.Plan, error)
	UpdatePlanGoal(ctx context.Context, userID, planID, goal string) error
	DeactivatePlans(ctx context.Context, userID string) error
	ActivatePlan(ctx context.Context, userID, planID string) error

	ReplacePillars(ctx context.Context, userID, planID string, titles []string) ([]models.Pillar, error)
	ListPillars(ctx context.Context, userID, planID string) ([]models.Pillar, error)
	ReplaceTasks(ctx context.Context, userID, pillarID string, contents []string) error
	ListPlanTasks(ctx context.Context, userID, planID string) ([]models.Task, error)

	ListDailyTasks(ctx context.Context, userID string, day time.Time) ([]models.DailyTask, error)
	// ClaimDailySelection records the day's selection. It reports false,
	// inserting nothing, when the day was already claimed.
	ClaimDailySelection(ctx context.Context, userID string, day time.Time, tasks []models.Task) (bool, error)
	ResetDailySelection(ctx context.Context, userID string, day time.Time) error
	ToggleDailyTask(ctx context.Context, userID, dailyTaskID string, completed bool, at time.Time) (models.DailyTask, error)
	DailyTotals(ctx context.Context, userID string, from, to time.Time) (map[string]models.DayCompletion, error)
}
