package models

import "time"

type User struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	Balance    int64     `json:"balance"`
	ReferrerID *int64    `json:"referrer_id"`
	JoinDate   time.Time `json:"join_date"`
	IsMember   bool      `json:"is_member"`
}

// ReferralStatus tags an entry in the append-only referral log.
type ReferralStatus string

const (
	ReferralCredited        ReferralStatus = "credited"
	ReferralNotMember       ReferralStatus = "rejected_not_member"
	ReferralInvalidReferrer ReferralStatus = "rejected_invalid_referrer"
	ReferralDuplicate       ReferralStatus = "duplicate"
)

type ReferralRecord struct {
	ID               int64          `json:"id"`
	ReferrerID       int64          `json:"referrer_id"`
	ReferredID       int64          `json:"referred_id"`
	Amount           int64          `json:"amount"`
	Status           ReferralStatus `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	ReferrerUsername string         `json:"referrer_username,omitempty"`
	ReferredUsername string         `json:"referred_username,omitempty"`
}

type GiftStatus string

const (
	GiftPending      GiftStatus = "pending"
	GiftApproved     GiftStatus = "approved"
	GiftRejected     GiftStatus = "rejected"
	GiftAutoApproved GiftStatus = "auto_approved"
)

// Terminal reports whether no further transition may leave this status.
func (s GiftStatus) Terminal() bool { return s != GiftPending }

// GiftRequest is a bal-for-reward exchange awaiting an admin decision.
// The bal cost is deducted from the owner at creation and comes back
// only if the request ends up rejected.
type GiftRequest struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	BalCost   int64      `json:"bal_cost"`
	Reward    int64      `json:"reward"`
	Status    GiftStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

type Stats struct {
	Total int `json:"total"`
	Day   int `json:"day"`
	Week  int `json:"week"`
	Month int `json:"month"`
}

// UserSession holds per-user dialog state for the transport layer.
type UserSession struct {
	State string
}

const StateAwaitingVvod = "awaiting_vvod"
