package models

import "time"

// MemberRole distinguishes who can review tasks from who completes them.
type MemberRole string

const (
	MemberRoleParent MemberRole = "parent"
	MemberRoleChild  MemberRole = "child"
)

// Member represents a household member.
type Member struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Role       MemberRole `json:"role" db:"role"`
	TelegramID *int64     `json:"telegram_id" db:"telegram_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsParent returns true if the member may review and decide tasks.
func (m *Member) IsParent() bool {
	return m.Role == MemberRoleParent
}

// Household represents a family group (typically mapped to a Telegram group chat).
type Household struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    *int64    `json:"chat_id" db:"chat_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Members   []Member  `json:"members,omitempty"`
}

// HouseholdMember represents the join table between households and members.
type HouseholdMember struct {
	ID          int64     `json:"id" db:"id"`
	HouseholdID int64     `json:"household_id" db:"household_id"`
	MemberID    int64     `json:"member_id" db:"member_id"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}
