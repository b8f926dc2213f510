package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ittebagilani/harada/app/models"
)

// fakeStore is an in-memory Store. Transactions are serialized but never
// rolled back.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq        int
	users      map[string]models.User
	answers    map[string]map[int]models.Answer
	plans      map[string]models.Plan
	pillars    map[string]models.Pillar
	tasks      map[string]models.Task
	daily      map[string]fakeDaily
	selections map[string]bool
	clock      time.Time

	// failures maps a method name to the error it returns.
	failures map[string]error
	locks    int
	claims   int
}

type fakeDaily struct {
	id          string
	userID      string
	taskID      string
	day         string
	content     string
	pillarTitle string
	position    int
	completed   bool
	completedAt *time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]models.User{},
		answers:    map[string]map[int]models.Answer{},
		plans:      map[string]models.Plan{},
		pillars:    map[string]models.Pillar{},
		tasks:      map[string]models.Task{},
		daily:      map[string]fakeDaily{},
		selections: map[string]bool{},
		failures:   map[string]error{},
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// nextID returns a valid UUID so ids pass the same checks as real rows.
func (s *fakeStore) nextID() string {
	s.seq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", s.seq)
}

// tick gives every created row a distinct, increasing timestamp.
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) fail(method string) error {
	return s.failures[method]
}

func (s *fakeStore) InTx(ctx context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

// seedUser stores a user and returns it with its id.
func (s *fakeStore) seedUser(clerkID string, premium bool) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{ID: s.nextID(), ClerkID: clerkID, IsPremium: premium, IsFirstUser: true, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) userByClerk(clerkID string) (models.User, bool) {
	for _, u := range s.users {
		if u.ClerkID == clerkID {
			return u, true
		}
	}
	return models.User{}, false
}

func (s *fakeStore) UpsertUser(ctx context.Context, u models.User) (models.User, error) {
	if err := s.fail("UpsertUser"); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.userByClerk(u.ClerkID); ok {
		if u.Email != "" {
			existing.Email = u.Email
		}
		if u.Name != "" {
			existing.Name = u.Name
		}
		s.users[existing.ID] = existing
		return existing, nil
	}
	u.ID = s.nextID()
	u.IsFirstUser = true
	u.CreatedAt = s.tick()
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeStore) GetUserByClerkID(ctx context.Context, clerkID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.userByClerk(clerkID); ok {
		return u, nil
	}
	return models.User{}, notFound("user not found")
}

func (s *fakeStore) LockUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return notFound("user not found")
	}
	s.locks++
	return nil
}

func (s *fakeStore) CompleteOnboarding(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return notFound("user not found")
	}
	u.IsFirstUser = false
	s.users[userID] = u
	return nil
}

func (s *fakeStore) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.StripeCustomerID = customerID
	s.users[userID] = u
	return nil
}

func (s *fakeStore) MarkPremiumFromCheckout(ctx context.Context, clerkID, customerID, subscriptionID string) (bool, error) {
	if err := s.fail("MarkPremiumFromCheckout"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.userByClerk(clerkID)
	if !ok {
		return false, nil
	}
	u.IsPremium = true
	u.StripeCustomerID = customerID
	if subscriptionID != "" {
		u.StripeSubscriptionID = subscriptionID
	}
	s.users[u.ID] = u
	return true, nil
}

func (s *fakeStore) BackfillSubscription(ctx context.Context, customerID, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.StripeCustomerID == customerID && u.StripeSubscriptionID == "" {
			u.StripeSubscriptionID = subscriptionID
			s.users[id] = u
		}
	}
	return nil
}

func (s *fakeStore) SetPremiumByCustomer(ctx context.Context, customerID string, premium bool) error {
	if err := s.fail("SetPremiumByCustomer"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.StripeCustomerID == customerID {
			u.IsPremium = premium
			s.users[id] = u
		}
	}
	return nil
}

func (s *fakeStore) UpsertAnswer(ctx context.Context, userID string, questionID, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answers[userID] == nil {
		s.answers[userID] = map[int]models.Answer{}
	}
	a, ok := s.answers[userID][questionID]
	if !ok {
		a = models.Answer{ID: s.nextID(), UserID: userID, QuestionID: questionID}
	}
	a.Value = value
	a.UpdatedAt = s.tick()
	s.answers[userID][questionID] = a
	return nil
}

func (s *fakeStore) ListAnswers(ctx context.Context, userID string) ([]models.Answer, error) {
	if err := s.fail("ListAnswers"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Answer
	for _, a := range s.answers[userID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (s *fakeStore) GetActivePlan(ctx context.Context, userID string) (models.Plan, error) {
	if err := s.fail("GetActivePlan"); err != nil {
		return models.Plan{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.Plan
	for _, p := range s.plans {
		if p.UserID == userID && p.IsActive {
			if found == nil || p.CreatedAt.After(found.CreatedAt) {
				p := p
				found = &p
			}
		}
	}
	if found == nil {
		return models.Plan{}, notFound("no active plan")
	}
	return *found, nil
}

func (s *fakeStore) GetPlan(ctx context.Context, userID, planID string) (models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok || p.UserID != userID {
		return models.Plan{}, notFound("plan not found")
	}
	return p, nil
}

func (s *fakeStore) ListPlans(ctx context.Context, userID string) ([]models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Plan
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsActive != out[j].IsActive {
			return out[i].IsActive
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeStore) CountPlans(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.plans {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountPillars(ctx context.Context, userID, planID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.pillars {
		if p.PlanID == planID && s.plans[planID].UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CreatePlan(ctx context.Context, userID, goal string) (models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	p := models.Plan{ID: s.nextID(), UserID: userID, Goal: goal, IsActive: true, CreatedAt: now, UpdatedAt: now}
	s.plans[p.ID] = p
	return p, nil
}

func (s *fakeStore) UpdatePlanGoal(ctx context.Context, userID, planID, goal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok || p.UserID != userID {
		return notFound("plan not found")
	}
	p.Goal = goal
	s.plans[planID] = p
	return nil
}

func (s *fakeStore) DeactivatePlans(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.plans {
		if p.UserID == userID {
			p.IsActive = false
			s.plans[id] = p
		}
	}
	return nil
}

func (s *fakeStore) ActivatePlan(ctx context.Context, userID, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok || p.UserID != userID {
		return notFound("plan not found")
	}
	p.IsActive = true
	s.plans[planID] = p
	return nil
}

// deleteTasksLocked removes the tasks drop selects. Daily rows keep their
// copied text and lose the task reference, like ON DELETE SET NULL.
func (s *fakeStore) deleteTasksLocked(drop func(models.Task) bool) {
	for id, t := range s.tasks {
		if !drop(t) {
			continue
		}
		delete(s.tasks, id)
		for did, d := range s.daily {
			if d.taskID == id {
				d.taskID = ""
				s.daily[did] = d
			}
		}
	}
}

func (s *fakeStore) ReplacePillars(ctx context.Context, userID, planID string, titles []string) ([]models.Pillar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.plans[planID]; !ok || p.UserID != userID {
		return nil, notFound("plan not found")
	}
	for id, p := range s.pillars {
		if p.PlanID == planID {
			delete(s.pillars, id)
			s.deleteTasksLocked(func(t models.Task) bool { return t.PillarID == id })
		}
	}
	out := make([]models.Pillar, len(titles))
	for i, title := range titles {
		p := models.Pillar{ID: s.nextID(), PlanID: planID, Position: i, Title: title}
		s.pillars[p.ID] = p
		out[i] = p
	}
	return out, nil
}

func (s *fakeStore) ListPillars(ctx context.Context, userID, planID string) ([]models.Pillar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Pillar
	for _, p := range s.pillars {
		if p.PlanID == planID && s.plans[planID].UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *fakeStore) ReplaceTasks(ctx context.Context, userID, pillarID string, contents []string) error {
	if err := s.fail("ReplaceTasks"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pillar, ok := s.pillars[pillarID]
	if !ok || s.plans[pillar.PlanID].UserID != userID {
		return notFound("pillar not found")
	}
	s.deleteTasksLocked(func(t models.Task) bool { return t.PillarID == pillarID })
	for i, c := range contents {
		t := models.Task{ID: s.nextID(), PillarID: pillarID, PillarTitle: pillar.Title, Order: i, Content: c}
		s.tasks[t.ID] = t
	}
	return nil
}

func (s *fakeStore) ListPlanTasks(ctx context.Context, userID, planID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plans[planID].UserID != userID {
		return nil, nil
	}
	var out []models.Task
	for _, t := range s.tasks {
		if s.pillars[t.PillarID].PlanID == planID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := s.pillars[out[i].PillarID].Position, s.pillars[out[j].PillarID].Position
		if pi != pj {
			return pi < pj
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (s *fakeStore) dailyTaskLocked(d fakeDaily) models.DailyTask {
	return models.DailyTask{
		ID:          d.id,
		TaskID:      d.taskID,
		Day:         d.day,
		Content:     d.content,
		PillarTitle: d.pillarTitle,
		Completed:   d.completed,
		CompletedAt: d.completedAt,
	}
}

func (s *fakeStore) ListDailyTasks(ctx context.Context, userID string, day time.Time) ([]models.DailyTask, error) {
	if err := s.fail("ListDailyTasks"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(day)
	var rows []fakeDaily
	for _, d := range s.daily {
		if d.userID == userID && d.day == key {
			rows = append(rows, d)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].position < rows[j].position })
	var out []models.DailyTask
	for _, d := range rows {
		out = append(out, s.dailyTaskLocked(d))
	}
	return out, nil
}

func (s *fakeStore) ClaimDailySelection(ctx context.Context, userID string, day time.Time, tasks []models.Task) (bool, error) {
	if err := s.fail("ClaimDailySelection"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++
	key := userID + "|" + dayKey(day)
	if s.selections[key] {
		return false, nil
	}
	s.selections[key] = true
	for i, t := range tasks {
		d := fakeDaily{
			id:          s.nextID(),
			userID:      userID,
			taskID:      t.ID,
			day:         dayKey(day),
			content:     t.Content,
			pillarTitle: t.PillarTitle,
			position:    i,
		}
		s.daily[d.id] = d
	}
	return true, nil
}

func (s *fakeStore) ResetDailySelection(ctx context.Context, userID string, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(day)
	delete(s.selections, userID+"|"+key)
	for id, d := range s.daily {
		if d.userID == userID && d.day == key {
			delete(s.daily, id)
		}
	}
	return nil
}

func (s *fakeStore) ToggleDailyTask(ctx context.Context, userID, dailyTaskID string, completed bool, at time.Time) (models.DailyTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.daily[dailyTaskID]
	if !ok || d.userID != userID {
		return models.DailyTask{}, notFound("task not found")
	}
	d.completed = completed
	d.completedAt = nil
	if completed {
		t := at.UTC()
		d.completedAt = &t
	}
	s.daily[dailyTaskID] = d
	return s.dailyTaskLocked(d), nil
}

func (s *fakeStore) DailyTotals(ctx context.Context, userID string, from, to time.Time) (map[string]models.DayCompletion, error) {
	if err := s.fail("DailyTotals"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := dayKey(from), dayKey(to)
	out := map[string]models.DayCompletion{}
	for _, d := range s.daily {
		if d.userID != userID || d.day < lo || d.day > hi {
			continue
		}
		c := out[d.day]
		c.Date = d.day
		c.Total++
		if d.completed {
			c.Completed++
		}
		out[d.day] = c
	}
	return out, nil
}

// seedDay inserts daily rows for day directly, completed of total done.
func (s *fakeStore) seedDay(userID string, day time.Time, completed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < total; i++ {
		d := fakeDaily{id: s.nextID(), userID: userID, taskID: s.nextID(), day: dayKey(day), position: i, completed: i < completed}
		s.daily[d.id] = d
	}
}
