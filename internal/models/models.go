package models

import "time"

// DrawStatus represents the lifecycle state of a draw.
type DrawStatus string

const (
	DrawStatusActive DrawStatus = "active"
	DrawStatusClosed DrawStatus = "closed"
	DrawStatusDrawn  DrawStatus = "drawn"
)

// Draw represents a single giveaway with a lifecycle from open entry
// to winner announcement. Winners stays empty until the draw is drawn,
// and is set exactly once.
type Draw struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    DrawStatus `json:"status"`
	Winners   []int64    `json:"winners"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Participant represents one user's entry into one draw.
// The (DrawID, UserID) pair is unique.
type Participant struct {
	DrawID   string    `json:"drawId"`
	UserID   int64     `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Referral records that ReferrerID's invitation led ReferredID to arrive.
// The pair is unique and self-referrals are never stored.
type Referral struct {
	ReferrerID int64     `json:"referrerId"`
	ReferredID int64     `json:"referredId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ReferrerCount is one leaderboard row: a referrer and the number of
// users they brought in.
type ReferrerCount struct {
	ReferrerID int64 `json:"referrerId"`
	Count      int   `json:"count"`
}

// Stats summarizes the overall state for operator reporting.
type Stats struct {
	Draws        int `json:"draws"`
	Participants int `json:"participants"`
}
