package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ittebagilani/harada/app/models"
	"github.com/lib/pq"
)

const dayLayout = "2006-01-02"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Store over lib/pq.
type PostgresStore struct {
	db    *sql.DB
	q     querier
	inTx  bool
	newID func() string
}

// OpenPostgres opens a pooled connection and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	d.SetMaxOpenConns(10)
	d.SetMaxIdleConns(5)
	d.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.PingContext(pingCtx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return d, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db, newID: uuid.NewString}
}

// InTx runs fn in a transaction. Nested calls reuse the outer transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&PostgresStore{db: s.db, q: tx, inTx: true, newID: s.newID}); err != nil {
		return err
	}
	return tx.Commit()
}

// Ids are UUIDs; anything else can never match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func mustAffect(res sql.Result, notFoundErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}

// users

const userColumns = `id, clerk_id, email, name, is_premium, stripe_customer_id, stripe_subscription_id, is_first_user, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var email, name, customerID, subscrID sql.NullString
	err := row.Scan(&u.ID, &u.ClerkID, &email, &name, &u.IsPremium, &customerID, &subscrID, &u.IsFirstUser, &u.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	u.Email = email.String
	u.Name = name.String
	u.StripeCustomerID = customerID.String
	u.StripeSubscriptionID = subscrID.String
	return u, nil
}

// UpsertUser inserts the user or refreshes email and name, keeping existing
// values when the new ones are empty.
func (s *PostgresStore) UpsertUser(ctx context.Context, u models.User) (models.User, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO users (id, clerk_id, email, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (clerk_id) DO UPDATE
		SET email = COALESCE(EXCLUDED.email, users.email),
			name = COALESCE(EXCLUDED.name, users.name),
			updated_at = now()
		RETURNING `+userColumns+`;
	`, s.newID(), u.ClerkID, nullIfEmpty(u.Email), nullIfEmpty(u.Name))
	return scanUser(row)
}

func (s *PostgresStore) GetUserByClerkID(ctx context.Context, clerkID string) (models.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1;`, clerkID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, notFound("user not found")
	}
	return u, err
}

func (s *PostgresStore) LockUser(ctx context.Context, userID string) error {
	var id string
	err := s.q.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE;`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("user not found")
	}
	return err
}

func (s *PostgresStore) CompleteOnboarding(ctx context.Context, userID string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users SET is_first_user = FALSE, updated_at = now()
		WHERE id = $1;
	`, userID)
	if err != nil {
		return err
	}
	return mustAffect(res, notFound("user not found"))
}

func (s *PostgresStore) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE users SET stripe_customer_id = $2, updated_at = now()
		WHERE id = $1;
	`, userID, customerID)
	return err
}

// MarkPremiumFromCheckout reports whether a user matched clerkID.
func (s *PostgresStore) MarkPremiumFromCheckout(ctx context.Context, clerkID, customerID, subscriptionID string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE users
		SET is_premium = TRUE,
			stripe_customer_id = $2,
			stripe_subscription_id = COALESCE($3, stripe_subscription_id),
			updated_at = now()
		WHERE clerk_id = $1;
	`, clerkID, customerID, nullIfEmpty(subscriptionID))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresStore) BackfillSubscription(ctx context.Context, customerID, subscriptionID string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE users
		SET stripe_subscription_id = $2, updated_at = now()
		WHERE stripe_customer_id = $1
		  AND (stripe_subscription_id IS NULL OR stripe_subscription_id = '');
	`, customerID, subscriptionID)
	return err
}

func (s *PostgresStore) SetPremiumByCustomer(ctx context.Context, customerID string, premium bool) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE users SET is_premium = $2, updated_at = now()
		WHERE stripe_customer_id = $1;
	`, customerID, premium)
	return err
}

// answers

func (s *PostgresStore) UpsertAnswer(ctx context.Context, userID string, questionID, value int) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO answers (id, user_id, question_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, question_id) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now();
	`, s.newID(), userID, questionID, value)
	return err
}

func (s *PostgresStore) ListAnswers(ctx context.Context, userID string) ([]models.Answer, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, question_id, value, updated_at
		FROM answers
		WHERE user_id = $1
		ORDER BY question_id;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.Value, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// plans

const planColumns = `id, user_id, goal, is_active, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (models.Plan, error) {
	var p models.Plan
	err := row.Scan(&p.ID, &p.UserID, &p.Goal, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PostgresStore) GetActivePlan(ctx context.Context, userID string) (models.Plan, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1;
	`, userID)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Plan{}, notFound("no active plan")
	}
	return p, err
}

func (s *PostgresStore) GetPlan(ctx context.Context, userID, planID string) (models.Plan, error) {
	if !validID(planID) {
		return models.Plan{}, notFound("plan not found")
	}
	row := s.q.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE id = $1 AND user_id = $2;
	`, planID, userID)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Plan{}, notFound("plan not found")
	}
	return p, err
}

func (s *PostgresStore) ListPlans(ctx context.Context, userID string) ([]models.Plan, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE user_id = $1
		ORDER BY is_active DESC, created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountPlans(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT count(*) FROM plans WHERE user_id = $1;`, userID).Scan(&n)
	return n, err
}

func (s *PostgresStore) CountPillars(ctx context.Context, userID, planID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT count(*)
		FROM pillars p
		JOIN plans pl ON pl.id = p.plan_id
		WHERE p.plan_id = $1 AND pl.user_id = $2;
	`, planID, userID).Scan(&n)
	return n, err
}

func (s *PostgresStore) CreatePlan(ctx context.Context, userID, goal string) (models.Plan, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO plans (id, user_id, goal, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING `+planColumns+`;
	`, s.newID(), userID, goal)
	return scanPlan(row)
}

func (s *PostgresStore) UpdatePlanGoal(ctx context.Context, userID, planID, goal string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE plans SET goal = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2;
	`, planID, userID, goal)
	if err != nil {
		return err
	}
	return mustAffect(res, notFound("plan not found"))
}

func (s *PostgresStore) DeactivatePlans(ctx context.Context, userID string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE plans SET is_active = FALSE, updated_at = now()
		WHERE user_id = $1 AND is_active;
	`, userID)
	return err
}

func (s *PostgresStore) ActivatePlan(ctx context.Context, userID, planID string) error {
	if !validID(planID) {
		return notFound("plan not found")
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE plans SET is_active = TRUE, updated_at = now()
		WHERE id = $1 AND user_id = $2;
	`, planID, userID)
	if err != nil {
		return err
	}
	return mustAffect(res, notFound("plan not found"))
}

// pillars and tasks

// ReplacePillars deletes the plan's pillars (and, by cascade, their tasks)
// and inserts titles at positions 0..n-1. Daily rows of the deleted tasks
// keep their copied text and lose their task_id.
func (s *PostgresStore) ReplacePillars(ctx context.Context, userID, planID string, titles []string) ([]models.Pillar, error) {
	if _, err := s.GetPlan(ctx, userID, planID); err != nil {
		return nil, err
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM pillars WHERE plan_id = $1;`, planID); err != nil {
		return nil, err
	}

	ids := make([]string, len(titles))
	positions := make([]int64, len(titles))
	out := make([]models.Pillar, len(titles))
	for i, title := range titles {
		ids[i] = s.newID()
		positions[i] = int64(i)
		out[i] = models.Pillar{ID: ids[i], PlanID: planID, Position: i, Title: title}
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO pillars (id, plan_id, position, title)
		SELECT u.id, $1, u.position, u.title
		FROM unnest($2::uuid[], $3::int[], $4::text[]) AS u(id, position, title);
	`, planID, pq.Array(ids), pq.Array(positions), pq.Array(titles))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListPillars(ctx context.Context, userID, planID string) ([]models.Pillar, error) {
	if !validID(planID) {
		return nil, nil
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT p.id, p.plan_id, p.position, p.title
		FROM pillars p
		JOIN plans pl ON pl.id = p.plan_id
		WHERE p.plan_id = $1 AND pl.user_id = $2
		ORDER BY p.position;
	`, planID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Pillar
	for rows.Next() {
		var p models.Pillar
		if err := rows.Scan(&p.ID, &p.PlanID, &p.Position, &p.Title); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ReplaceTasks(ctx context.Context, userID, pillarID string, contents []string) error {
	if !validID(pillarID) {
		return notFound("pillar not found")
	}
	var owned bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pillars p
			JOIN plans pl ON pl.id = p.plan_id
			WHERE p.id = $1 AND pl.user_id = $2
		);
	`, pillarID, userID).Scan(&owned)
	if err != nil {
		return err
	}
	if !owned {
		return notFound("pillar not found")
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE pillar_id = $1;`, pillarID); err != nil {
		return err
	}

	ids := make([]string, len(contents))
	positions := make([]int64, len(contents))
	for i := range contents {
		ids[i] = s.newID()
		positions[i] = int64(i)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO tasks (id, pillar_id, position, content)
		SELECT u.id, $1, u.position, u.content
		FROM unnest($2::uuid[], $3::int[], $4::text[]) AS u(id, position, content);
	`, pillarID, pq.Array(ids), pq.Array(positions), pq.Array(contents))
	return err
}

// ListPlanTasks returns every task of the plan ordered by pillar, then task position.
func (s *PostgresStore) ListPlanTasks(ctx context.Context, userID, planID string) ([]models.Task, error) {
	if !validID(planID) {
		return nil, nil
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT t.id, t.pillar_id, p.title, t.position, t.content
		FROM tasks t
		JOIN pillars p ON p.id = t.pillar_id
		JOIN plans pl ON pl.id = p.plan_id
		WHERE pl.id = $1 AND pl.user_id = $2
		ORDER BY p.position, t.position;
	`, planID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.PillarID, &t.PillarTitle, &t.Order, &t.Content); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// daily tasks

// Daily rows are read from their own copy of the task text; task_id is
// null once the source task has been regenerated away.
const dailySelect = `
	SELECT dt.id, dt.task_id, dt.day, dt.content, dt.pillar_title, dt.completed, dt.completed_at
	FROM daily_tasks dt
`

func scanDailyTask(row interface{ Scan(...any) error }) (models.DailyTask, error) {
	var (
		d           models.DailyTask
		taskID      sql.NullString
		day         time.Time
		completedAt sql.NullTime
	)
	if err := row.Scan(&d.ID, &taskID, &day, &d.Content, &d.PillarTitle, &d.Completed, &completedAt); err != nil {
		return models.DailyTask{}, err
	}
	d.TaskID = taskID.String
	d.Day = day.Format(dayLayout)
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		d.CompletedAt = &t
	}
	return d, nil
}

func (s *PostgresStore) ListDailyTasks(ctx context.Context, userID string, day time.Time) ([]models.DailyTask, error) {
	rows, err := s.q.QueryContext(ctx, dailySelect+`
		WHERE dt.user_id = $1 AND dt.day = $2::date
		ORDER BY dt.position, dt.id;
	`, userID, day.Format(dayLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DailyTask
	for rows.Next() {
		d, err := scanDailyTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ClaimDailySelection inserts the (user, day) guard row and the day's tasks
// in one transaction. A concurrent claimer blocks on the guard's primary key
// until the first commits, then sees zero affected rows. Each row copies the
// task's content and pillar title; tasks are stored in slice order.
func (s *PostgresStore) ClaimDailySelection(ctx context.Context, userID string, day time.Time, tasks []models.Task) (bool, error) {
	claimed := false
	err := s.InTx(ctx, func(st Store) error {
		tx := st.(*PostgresStore)
		res, err := tx.q.ExecContext(ctx, `
			INSERT INTO daily_selections (user_id, day)
			VALUES ($1, $2::date)
			ON CONFLICT (user_id, day) DO NOTHING;
		`, userID, day.Format(dayLayout))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		var (
			ids       = make([]string, len(tasks))
			taskIDs   = make([]string, len(tasks))
			contents  = make([]string, len(tasks))
			titles    = make([]string, len(tasks))
			positions = make([]int64, len(tasks))
		)
		for i, t := range tasks {
			ids[i] = tx.newID()
			taskIDs[i] = t.ID
			contents[i] = t.Content
			titles[i] = t.PillarTitle
			positions[i] = int64(i)
		}
		_, err = tx.q.ExecContext(ctx, `
			INSERT INTO daily_tasks (id, user_id, task_id, day, completed, content, pillar_title, position)
			SELECT u.id, $1, u.task_id, $2::date, FALSE, u.content, u.pillar_title, u.position
			FROM unnest($3::uuid[], $4::uuid[], $5::text[], $6::text[], $7::int[])
				AS u(id, task_id, content, pillar_title, position)
			ON CONFLICT (user_id, task_id, day) DO NOTHING;
		`, userID, day.Format(dayLayout), pq.Array(ids), pq.Array(taskIDs), pq.Array(contents), pq.Array(titles), pq.Array(positions))
		if err != nil {
			return err
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// ResetDailySelection drops the day's guard and rows so the next read draws again.
func (s *PostgresStore) ResetDailySelection(ctx context.Context, userID string, day time.Time) error {
	key := day.Format(dayLayout)
	if _, err := s.q.ExecContext(ctx, `DELETE FROM daily_tasks WHERE user_id = $1 AND day = $2::date;`, userID, key); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `DELETE FROM daily_selections WHERE user_id = $1 AND day = $2::date;`, userID, key)
	return err
}

func (s *PostgresStore) ToggleDailyTask(ctx context.Context, userID, dailyTaskID string, completed bool, at time.Time) (models.DailyTask, error) {
	if !validID(dailyTaskID) {
		return models.DailyTask{}, notFound("task not found")
	}
	var completedAt sql.NullTime
	if completed {
		completedAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE daily_tasks SET completed = $3, completed_at = $4
		WHERE id = $1 AND user_id = $2;
	`, dailyTaskID, userID, completed, completedAt)
	if err != nil {
		return models.DailyTask{}, err
	}
	if err := mustAffect(res, notFound("task not found")); err != nil {
		return models.DailyTask{}, err
	}

	row := s.q.QueryRowContext(ctx, dailySelect+`WHERE dt.id = $1 AND dt.user_id = $2;`, dailyTaskID, userID)
	d, err := scanDailyTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyTask{}, notFound("task not found")
	}
	return d, err
}

// DailyTotals aggregates daily tasks per day over [from, to], keyed by YYYY-MM-DD.
func (s *PostgresStore) DailyTotals(ctx context.Context, userID string, from, to time.Time) (map[string]models.DayCompletion, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT day, count(*), count(*) FILTER (WHERE completed)
		FROM daily_tasks
		WHERE user_id = $1 AND day BETWEEN $2::date AND $3::date
		GROUP BY day;
	`, userID, from.Format(dayLayout), to.Format(dayLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]models.DayCompletion{}
	for rows.Next() {
		var (
			day              time.Time
			total, completed int
		)
		if err := rows.Scan(&day, &total, &completed); err != nil {
			return nil, err
		}
		key := day.Format(dayLayout)
		out[key] = models.DayCompletion{Date: key, Completed: completed, Total: total}
	}
	return out, rows.Err()
}
