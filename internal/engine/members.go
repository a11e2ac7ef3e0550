package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

// CreateMember creates a member inside the caller's household, together with
// the records whose lifetime is bound to the member: a trust profile seeded
// at the baseline score and an empty reward balance. All three are created
// in one transaction.
func (e *Engine) CreateMember(ctx context.Context, sess Session, name string, role models.MemberRole, telegramID *int64) (*models.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: member name is required", ErrInvalidMember)
	}
	if role != models.MemberRoleParent && role != models.MemberRoleChild {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidMember, role)
	}

	now := e.Now()
	var created *models.Member
	err := e.tx.Do(ctx, func(r repository.Repositories) error {
		member, err := r.Members.Create(ctx, &models.Member{
			Name:       name,
			Role:       role,
			TelegramID: telegramID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return storageErr(err)
		}
		if err := r.Households.AddMember(ctx, sess.HouseholdID, member.ID); err != nil {
			return storageErr(err)
		}
		if _, err := r.Profiles.Create(ctx, &models.TrustProfile{
			MemberID:  member.ID,
			Score:     baselineScore,
			UpdatedAt: now,
		}); err != nil {
			return storageErr(err)
		}
		if _, err := r.Rewards.Create(ctx, &models.RewardBalance{
			MemberID:  member.ID,
			UpdatedAt: now,
		}); err != nil {
			return storageErr(err)
		}
		created = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Infof("Created member %q (id=%d, role=%s) in household %d", created.Name, created.ID, created.Role, sess.HouseholdID)
	return created, nil
}

// EnsureHousehold retrieves the household bound to the given chat, or
// creates one if it does not exist. A changed chat title updates the
// household name.
func (e *Engine) EnsureHousehold(ctx context.Context, chatID int64, title string) (*models.Household, error) {
	title = strings.TrimSpace(title)

	household, err := e.repos.Households.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, storageErr(err)
	}
	if household == nil {
		now := e.Now()
		household, err = e.repos.Households.Create(ctx, &models.Household{
			ChatID:    &chatID,
			Name:      title,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, storageErr(err)
		}
		e.logger.Infof("Created household %q (chat_id=%d)", title, chatID)
		return household, nil
	}

	if title != "" && household.Name != title {
		household.Name = title
		household.UpdatedAt = e.Now()
		household, err = e.repos.Households.Update(ctx, household)
		if err != nil {
			return nil, storageErr(err)
		}
	}
	return household, nil
}

// EnsureMember retrieves the member bound to the given Telegram identity
// within a household, creating the member (with profile and balance) on
// first contact. Existing members get their name refreshed when it changed.
func (e *Engine) EnsureMember(ctx context.Context, householdID, telegramID int64, name string, role models.MemberRole) (*models.Member, error) {
	name = strings.TrimSpace(name)

	member, err := e.repos.Members.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, storageErr(err)
	}
	if member == nil {
		return e.CreateMember(ctx, Session{HouseholdID: householdID}, name, role, &telegramID)
	}

	ok, err := e.repos.Households.IsMember(ctx, householdID, member.ID)
	if err != nil {
		return nil, storageErr(err)
	}
	if !ok {
		if err := e.repos.Households.AddMember(ctx, householdID, member.ID); err != nil {
			return nil, storageErr(err)
		}
		e.logger.Infof("Added member %d to household %d", member.ID, householdID)
	}

	if name != "" && member.Name != name {
		member.Name = name
		member.UpdatedAt = e.Now()
		member, err = e.repos.Members.Update(ctx, member)
		if err != nil {
			return nil, storageErr(err)
		}
	}
	return member, nil
}
