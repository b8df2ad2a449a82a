package model

import "time"

// User represents a marketplace member as stored in the `users` table.
// Both reputation scores are running averages seeded at 5.0; the
// matching *Count fields hold the number of real ratings folded into
// each average.  Trophy counters are incremented when a task completes.
//
// Fields:
//  ID                   – primary key identifier.
//  Username             – unique login name.
//  PasswordHash         – bcrypt hashed password, never serialised.
//  PhoneNumber          – unique contact phone.
//  RollNumber           – unique roll / id number.
//  GivingRating         – average received while acting as task giver.
//  AcceptingRating      – average received while acting as task doer.
//  GivingRatingCount    – number of GIVING ratings received.
//  AcceptingRatingCount – number of ACCEPTING ratings received.
//  TrophiesGiven        – completed tasks this user posted.
//  TrophiesAccepted     – completed tasks this user performed.
//  CreatedAt            – registration timestamp.
type User struct {
	ID                   uint64    `json:"user_id"`
	Username             string    `json:"username"`
	PasswordHash         string    `json:"-"`
	PhoneNumber          string    `json:"phone_number"`
	RollNumber           string    `json:"roll_number"`
	GivingRating         float64   `json:"giving_rating"`
	AcceptingRating      float64   `json:"accepting_rating"`
	GivingRatingCount    int       `json:"giving_rating_count"`
	AcceptingRatingCount int       `json:"accepting_rating_count"`
	TrophiesGiven        int       `json:"trophies_given"`
	TrophiesAccepted     int       `json:"trophies_accepted"`
	CreatedAt            time.Time `json:"created_at"`
}

// TotalTrophies is the sum of both role-specific trophy counters.
func (u User) TotalTrophies() int { return u.TrophiesGiven + u.TrophiesAccepted }

// ProfileStats aggregates activity counters shown on a profile page.
type ProfileStats struct {
	TasksGiven     int `json:"tasks_given"`
	TasksAccepted  int `json:"tasks_accepted"`
	TasksCompleted int `json:"tasks_completed"`
	Applications   int `json:"applications"`
}

// Profile is a user together with derived totals and activity stats.
type Profile struct {
	User
	TotalTrophies int          `json:"total_trophies"`
	Stats         ProfileStats `json:"stats"`
}

// LeaderboardEntry is one ranked row of a leaderboard category.
type LeaderboardEntry struct {
	UserID           uint64  `json:"user_id"`
	Username         string  `json:"username"`
	GivingRating     float64 `json:"giving_rating"`
	AcceptingRating  float64 `json:"accepting_rating"`
	TrophiesGiven    int     `json:"trophies_given"`
	TrophiesAccepted int     `json:"trophies_accepted"`
	TrophyCount      int     `json:"trophy_count"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
