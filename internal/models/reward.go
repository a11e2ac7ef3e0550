package models

import "time"

// RewardBalance tracks what a member has earned. XP accumulates for
// levelling; minutes are the spendable screen-time currency derived from XP
// through the trust multiplier at approval time.
type RewardBalance struct {
	MemberID       int64     `json:"member_id" db:"member_id"`
	XPBalance      int       `json:"xp_balance" db:"xp_balance"`
	MinutesBalance int       `json:"minutes_balance" db:"minutes_balance"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
