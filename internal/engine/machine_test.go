package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
	"github.com/nd-ahl/envive/internal/repository/memory"
)

type nopGranter struct{}

func (nopGranter) GrantMinutes(context.Context, int64, int) {}

// testEnv is one household with a parent (the session caller) and a child.
type testEnv struct {
	eng    *Engine
	store  *memory.Store
	sess   Session
	child  *models.Member
	now    time.Time
	cancel func()
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	eng := New(store.Repositories(), store.TxManager(), nopGranter{}, nil, testLogger())

	env := &testEnv{eng: eng, store: store, now: scoreEpoch}
	eng.Now = func() time.Time { return env.now }

	household, err := store.Repositories().Households.Create(ctx, &models.Household{Name: "Testers"})
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	parent, err := eng.CreateMember(ctx, Session{HouseholdID: household.ID}, "Dana", models.MemberRoleParent, nil)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	env.sess = Session{HouseholdID: household.ID, MemberID: parent.ID}

	child, err := eng.CreateMember(ctx, env.sess, "Theo", models.MemberRoleChild, nil)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	env.child = child
	return env
}

// pendingTask runs a task up to pending_review and returns it.
func (env *testEnv) pendingTask(t *testing.T, baseXP int) *models.TaskAssignment {
	t.Helper()
	ctx := context.Background()

	task, err := env.eng.CreateAssignment(ctx, env.sess, env.child.ID, 7, baseXP)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if err := env.eng.Start(ctx, env.sess, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.eng.SubmitForReview(ctx, env.sess, task.ID, "photo:abc123"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return task
}

func (env *testEnv) trust(t *testing.T) models.TrustStatus {
	t.Helper()
	status, err := env.eng.CurrentTrust(context.Background(), env.sess, env.child.ID)
	if err != nil {
		t.Fatalf("current trust: %v", err)
	}
	return status
}

func (env *testEnv) balance(t *testing.T) *models.RewardBalance {
	t.Helper()
	balance, err := env.eng.CurrentBalance(context.Background(), env.sess, env.child.ID)
	if err != nil {
		t.Fatalf("current balance: %v", err)
	}
	return balance
}

func TestApprove_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.pendingTask(t, 1000)

	xp, minutes, err := env.eng.Approve(ctx, env.sess, task.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if xp != 1000 {
		t.Fatalf("expected 1000 XP credited, got %d", xp)
	}
	// Fresh member stays excellent: 1000 XP at 1.2 is 1200 minutes.
	if minutes != 1200 {
		t.Fatalf("expected 1200 minutes credited, got %d", minutes)
	}

	balance := env.balance(t)
	if balance.XPBalance != 1000 || balance.MinutesBalance != 1200 {
		t.Fatalf("unexpected balance: %+v", balance)
	}

	got, err := env.eng.ListAssignments(ctx, env.sess, env.child.ID, repository.TaskFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Status != models.TaskStatusApproved {
		t.Fatalf("expected one approved assignment, got %+v", got)
	}
	if got[0].DecidedAt == nil {
		t.Fatal("expected decided_at to be set")
	}
	if got[0].ProofRef != "photo:abc123" {
		t.Fatalf("expected proof ref to survive, got %q", got[0].ProofRef)
	}
}

func TestTransitions_InvalidPathsAreRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.eng.CreateAssignment(ctx, env.sess, env.child.ID, 7, 100)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	// assigned: only Start is legal.
	if err := env.eng.SubmitForReview(ctx, env.sess, task.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("submit from assigned: expected ErrInvalidTransition, got %v", err)
	}
	if _, _, err := env.eng.Approve(ctx, env.sess, task.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approve from assigned: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := env.eng.Decline(ctx, env.sess, task.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("decline from assigned: expected ErrInvalidTransition, got %v", err)
	}

	if err := env.eng.Start(ctx, env.sess, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	// in_progress: starting again is illegal.
	if err := env.eng.Start(ctx, env.sess, task.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double start: expected ErrInvalidTransition, got %v", err)
	}

	if err := env.eng.SubmitForReview(ctx, env.sess, task.ID, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.eng.Decline(ctx, env.sess, task.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// Terminal states are final.
	if err := env.eng.Start(ctx, env.sess, task.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("start after decline: expected ErrInvalidTransition, got %v", err)
	}
	if _, _, err := env.eng.Approve(ctx, env.sess, task.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approve after decline: expected ErrInvalidTransition, got %v", err)
	}
}

func TestApprove_NoDoubleCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.pendingTask(t, 100)
	if _, _, err := env.eng.Approve(ctx, env.sess, task.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	before := env.balance(t)

	_, _, err := env.eng.Approve(ctx, env.sess, task.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second approve: expected ErrInvalidTransition, got %v", err)
	}

	after := env.balance(t)
	if after.XPBalance != before.XPBalance || after.MinutesBalance != before.MinutesBalance {
		t.Fatalf("balance changed on failed approve: before %+v, after %+v", before, after)
	}
}

func TestDecline_PenaltyStacking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// First-ever decline: -10.
	task := env.pendingTask(t, 100)
	score, err := env.eng.Decline(ctx, env.sess, task.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if score != 90 {
		t.Fatalf("expected 90 after first decline, got %d", score)
	}
	if env.trust(t).Tier != models.TierExcellent {
		t.Fatalf("expected excellent at 90, got %s", env.trust(t).Tier)
	}

	// Second decline two days later stacks: -15.
	env.now = env.now.Add(2 * 24 * time.Hour)
	task = env.pendingTask(t, 100)
	score, err = env.eng.Decline(ctx, env.sess, task.ID)
	if err != nil {
		t.Fatalf("second decline: %v", err)
	}
	if score != 75 {
		t.Fatalf("expected 75 after stacked decline, got %d", score)
	}
	if env.trust(t).Tier != models.TierGood {
		t.Fatalf("expected good at 75, got %s", env.trust(t).Tier)
	}

	// A decline ten days after the last penalty does not stack.
	env.now = env.now.Add(10 * 24 * time.Hour)
	task = env.pendingTask(t, 100)
	score, err = env.eng.Decline(ctx, env.sess, task.ID)
	if err != nil {
		t.Fatalf("third decline: %v", err)
	}
	if score != 65 {
		t.Fatalf("expected 65 after unstacked decline, got %d", score)
	}
}

func TestDecline_ResetsApprovalStreak(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		task := env.pendingTask(t, 10)
		if _, _, err := env.eng.Approve(ctx, env.sess, task.ID); err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
	}
	task := env.pendingTask(t, 10)
	if _, err := env.eng.Decline(ctx, env.sess, task.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// After the reset, ten more approvals are needed for a bonus; five
	// must not be enough.
	for i := 0; i < 5; i++ {
		task := env.pendingTask(t, 10)
		if _, _, err := env.eng.Approve(ctx, env.sess, task.ID); err != nil {
			t.Fatalf("approve after reset %d: %v", i, err)
		}
	}
	events, err := env.eng.TrustHistory(ctx, env.sess, env.child.ID, time.Time{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, e := range events {
		if e.Kind == models.TrustEventBonus {
			t.Fatalf("unexpected bonus event after streak reset: %+v", e)
		}
	}
}

func TestApprove_StreakBonusEveryTenth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		task := env.pendingTask(t, 10)
		if _, _, err := env.eng.Approve(ctx, env.sess, task.ID); err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
	}

	events, err := env.eng.TrustHistory(ctx, env.sess, env.child.ID, time.Time{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var approvals, bonuses int
	for _, e := range events {
		switch e.Kind {
		case models.TrustEventApproval:
			approvals++
		case models.TrustEventBonus:
			bonuses++
			if e.Magnitude != streakBonus {
				t.Fatalf("expected bonus magnitude %d, got %d", streakBonus, e.Magnitude)
			}
		}
	}
	if approvals != 20 {
		t.Fatalf("expected 20 approval events, got %d", approvals)
	}
	if bonuses != 2 {
		t.Fatalf("expected 2 bonus events over 20 approvals, got %d", bonuses)
	}
}

func TestSocialPenalty_ApplyAndUndo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	score, err := env.eng.ApplySocialPenalty(ctx, env.sess, env.child.ID, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if score != 90 {
		t.Fatalf("expected 90, got %d", score)
	}

	restored, err := env.eng.UndoSocialPenalty(ctx, env.sess, env.child.ID, nil)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if restored != 10 {
		t.Fatalf("expected 10 restored, got %d", restored)
	}
	if got := env.trust(t).Score; got != 100 {
		t.Fatalf("expected score back at 100, got %d", got)
	}

	// Nothing left to undo.
	if _, err := env.eng.UndoSocialPenalty(ctx, env.sess, env.child.ID, nil); !errors.Is(err, ErrNoPenaltyToUndo) {
		t.Fatalf("expected ErrNoPenaltyToUndo, got %v", err)
	}
}

func TestUndo_AfterDeclineRestoresScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.pendingTask(t, 100)
	if _, err := env.eng.Decline(ctx, env.sess, task.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	env.now = env.now.Add(2 * 24 * time.Hour)
	task = env.pendingTask(t, 100)
	if _, err := env.eng.Decline(ctx, env.sess, task.ID); err != nil {
		t.Fatalf("second decline: %v", err)
	}
	if got := env.trust(t).Score; got != 75 {
		t.Fatalf("expected 75, got %d", got)
	}

	// Undoing the most recent decline returns the score to 90. The task
	// itself stays declined; only the trust consequence is reversed.
	restored, err := env.eng.UndoSocialPenalty(ctx, env.sess, env.child.ID, &task.ID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if restored != 15 {
		t.Fatalf("expected 15 restored, got %d", restored)
	}
	if got := env.trust(t).Score; got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
}

func TestSpendMinutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.pendingTask(t, 100)
	if _, _, err := env.eng.Approve(ctx, env.sess, task.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// 100 XP at 1.2 is 120 minutes.
	remaining, err := env.eng.SpendMinutes(ctx, env.sess, env.child.ID, 45)
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if remaining != 75 {
		t.Fatalf("expected 75 remaining, got %d", remaining)
	}

	if _, err := env.eng.SpendMinutes(ctx, env.sess, env.child.ID, 1000); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("overdraw: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := env.eng.SpendMinutes(ctx, env.sess, env.child.ID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero spend: expected ErrInvalidAmount, got %v", err)
	}
	// Balance unchanged by the failed spends.
	if got := env.balance(t).MinutesBalance; got != 75 {
		t.Fatalf("expected balance still 75, got %d", got)
	}
}

func TestCreateAssignment_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.eng.CreateAssignment(ctx, env.sess, env.child.ID, 7, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero xp: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := env.eng.CreateAssignment(ctx, env.sess, 0, 7, 100); !errors.Is(err, ErrInvalidMember) {
		t.Fatalf("zero member: expected ErrInvalidMember, got %v", err)
	}
	// A member id from another household fails closed.
	if _, err := env.eng.CreateAssignment(ctx, env.sess, 9999, 7, 100); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("foreign member: expected ErrNotAuthorized, got %v", err)
	}
}
