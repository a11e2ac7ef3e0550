package engine

import (
	"context"
	"fmt"
)

// Session identifies the caller: the household they are acting within and
// their own member identity. It is threaded explicitly through every call —
// there is no ambient "current profile" that role switches could swap out
// from under concurrent callers.
type Session struct {
	HouseholdID int64
	MemberID    int64
}

// MembershipChecker is the external membership collaborator.
type MembershipChecker interface {
	IsMember(ctx context.Context, householdID, memberID int64) (bool, error)
}

// Guard scopes every read and write to a household the caller is authorized
// for. Authorization failures are a distinct error, never an empty result,
// and there is no fallback identity when the membership list is incomplete.
type Guard struct {
	members MembershipChecker
}

// NewGuard creates a Guard over the given membership collaborator.
func NewGuard(members MembershipChecker) *Guard {
	return &Guard{members: members}
}

// Authorize returns nil iff the session may act on memberID. Self-access is
// always permitted, even before the household membership list has been
// refreshed.
func (g *Guard) Authorize(ctx context.Context, sess Session, memberID int64) error {
	if memberID == 0 {
		return fmt.Errorf("%w: member id is required", ErrInvalidMember)
	}
	if memberID == sess.MemberID {
		return nil
	}
	ok, err := g.members.IsMember(ctx, sess.HouseholdID, memberID)
	if err != nil {
		return storageErr(err)
	}
	if !ok {
		return fmt.Errorf("%w: member %d is not in household %d", ErrNotAuthorized, memberID, sess.HouseholdID)
	}
	return nil
}
