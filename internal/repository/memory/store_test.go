package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

func TestTxManager_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()

	member, err := repos.Members.Create(ctx, &models.Member{Name: "Theo", Role: models.MemberRoleChild})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if _, err := repos.Rewards.Create(ctx, &models.RewardBalance{MemberID: member.ID}); err != nil {
		t.Fatalf("create balance: %v", err)
	}

	boom := errors.New("boom")
	err = store.TxManager().Do(ctx, func(r repository.Repositories) error {
		balance, err := r.Rewards.GetByMemberID(ctx, member.ID)
		if err != nil {
			t.Fatalf("get balance: %v", err)
		}
		balance.XPBalance = 500
		if _, err := r.Rewards.Update(ctx, balance); err != nil {
			t.Fatalf("update balance: %v", err)
		}
		if _, err := r.Events.Append(ctx, &models.TrustEvent{
			MemberID:   member.ID,
			Kind:       models.TrustEventApproval,
			Magnitude:  2,
			OccurredAt: time.Now(),
		}); err != nil {
			t.Fatalf("append event: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	balance, err := repos.Rewards.GetByMemberID(ctx, member.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.XPBalance != 0 {
		t.Fatalf("expected balance write rolled back, got %d", balance.XPBalance)
	}
	events, err := repos.Events.ListByMember(ctx, member.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected event append rolled back, got %d events", len(events))
	}
}

func TestTxManager_CommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()

	member, err := repos.Members.Create(ctx, &models.Member{Name: "Theo", Role: models.MemberRoleChild})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if _, err := repos.Rewards.Create(ctx, &models.RewardBalance{MemberID: member.ID}); err != nil {
		t.Fatalf("create balance: %v", err)
	}

	err = store.TxManager().Do(ctx, func(r repository.Repositories) error {
		balance, err := r.Rewards.GetByMemberID(ctx, member.ID)
		if err != nil {
			return err
		}
		balance.XPBalance = 500
		_, err = r.Rewards.Update(ctx, balance)
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	balance, err := repos.Rewards.GetByMemberID(ctx, member.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.XPBalance != 500 {
		t.Fatalf("expected committed balance 500, got %d", balance.XPBalance)
	}
}

func TestReads_ReturnClones(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	member, err := repos.Members.Create(ctx, &models.Member{Name: "Theo", Role: models.MemberRoleChild})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	// Mutating a read result must not leak into the store.
	got, err := repos.Members.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Name = "mutated"

	again, err := repos.Members.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.Name != "Theo" {
		t.Fatalf("store leaked a mutation: got %q", again.Name)
	}
}
