package repository

import (
	"context"
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) (*models.Member, error)
	GetByID(ctx context.Context, id int64) (*models.Member, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) (*models.Member, error)
	Delete(ctx context.Context, id int64) error
}

// HouseholdRepository defines the interface for household data and
// membership operations. IsMember is the authorization lookup used by the
// isolation guard; it must reflect writes made in the same process
// immediately.
type HouseholdRepository interface {
	Create(ctx context.Context, household *models.Household) (*models.Household, error)
	GetByID(ctx context.Context, id int64) (*models.Household, error)
	GetByChatID(ctx context.Context, chatID int64) (*models.Household, error)
	Update(ctx context.Context, household *models.Household) (*models.Household, error)
	AddMember(ctx context.Context, householdID, memberID int64) error
	RemoveMember(ctx context.Context, householdID, memberID int64) error
	GetMembers(ctx context.Context, householdID int64) ([]*models.Member, error)
	IsMember(ctx context.Context, householdID, memberID int64) (bool, error)
}

// TrustProfileRepository defines the interface for trust profile operations
type TrustProfileRepository interface {
	Create(ctx context.Context, profile *models.TrustProfile) (*models.TrustProfile, error)
	GetByMemberID(ctx context.Context, memberID int64) (*models.TrustProfile, error)
	Update(ctx context.Context, profile *models.TrustProfile) (*models.TrustProfile, error)
}

// TrustEventRepository is the append-only trust ledger. Events are never
// updated or deleted; corrections are appended as penalty_undo entries.
type TrustEventRepository interface {
	Append(ctx context.Context, event *models.TrustEvent) (*models.TrustEvent, error)
	ListByMember(ctx context.Context, memberID int64) ([]*models.TrustEvent, error)
	ListByMemberSince(ctx context.Context, memberID int64, since time.Time) ([]*models.TrustEvent, error)
}

// TaskRepository defines the interface for task assignment operations
type TaskRepository interface {
	Create(ctx context.Context, task *models.TaskAssignment) (*models.TaskAssignment, error)
	GetByID(ctx context.Context, id int64) (*models.TaskAssignment, error)
	GetByMember(ctx context.Context, memberID int64, filters TaskFilters) ([]*models.TaskAssignment, error)
	Update(ctx context.Context, task *models.TaskAssignment) (*models.TaskAssignment, error)
}

// RewardRepository defines the interface for reward balance operations
type RewardRepository interface {
	Create(ctx context.Context, balance *models.RewardBalance) (*models.RewardBalance, error)
	GetByMemberID(ctx context.Context, memberID int64) (*models.RewardBalance, error)
	Update(ctx context.Context, balance *models.RewardBalance) (*models.RewardBalance, error)
}

// TaskFilters represents filters for querying task assignments
type TaskFilters struct {
	Status *models.TaskStatus
	Limit  int
	Offset int
}

// Repositories bundles every repository so transactional code can receive
// the full set bound to one transaction.
type Repositories struct {
	Members    MemberRepository
	Households HouseholdRepository
	Profiles   TrustProfileRepository
	Events     TrustEventRepository
	Tasks      TaskRepository
	Rewards    RewardRepository
}

// TxManager runs a function with all repositories bound to a single
// transaction. If fn returns an error the transaction is rolled back and
// nothing it wrote is visible; otherwise everything commits together.
type TxManager interface {
	Do(ctx context.Context, fn func(r Repositories) error) error
}
