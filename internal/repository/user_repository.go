package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/credo/internal/model"
	"github.com/iliyamo/credo/internal/utils"
)

const userColumns = `user_id, username, password_hash, phone_number, roll_number,
	giving_rating, accepting_rating, giving_rating_count, accepting_rating_count,
	trophies_given, trophies_accepted, created_at`

// UserRepo persists users and their reputation aggregates.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo backed by db.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.PhoneNumber, &u.RollNumber,
		&u.GivingRating, &u.AcceptingRating, &u.GivingRatingCount, &u.AcceptingRatingCount,
		&u.TrophiesGiven, &u.TrophiesAccepted, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create hashes the password and inserts the user, returning its ID.
// Collisions on username, phone or roll number map to their own sentinel.
func (r *UserRepo) Create(ctx context.Context, username, password, phone, roll string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, phone_number, roll_number) VALUES (?,?,?,?)",
		strings.TrimSpace(username), hash, strings.TrimSpace(phone), strings.TrimSpace(roll))
	if err != nil {
		return 0, userConflict(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// userConflict translates a duplicate key error into the matching sentinel.
func userConflict(err error) error {
	if !isDuplicate(err) {
		return err
	}
	key := duplicateKey(err)
	switch {
	case strings.Contains(key, "phone"):
		return ErrPhoneExists
	case strings.Contains(key, "roll"):
		return ErrRollExists
	default:
		return ErrUsernameExists
	}
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", strings.TrimSpace(username)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id = ? LIMIT 1", id))
}

// UpdateContact replaces the phone and roll numbers of a user.
func (r *UserRepo) UpdateContact(ctx context.Context, id uint64, phone, roll string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET phone_number = ?, roll_number = ? WHERE user_id = ?",
		strings.TrimSpace(phone), strings.TrimSpace(roll), id)
	if err != nil {
		return userConflict(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 when the values are unchanged, so confirm existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Stats counts the user's activity across tasks and applications.
func (r *UserRepo) Stats(ctx context.Context, id uint64) (model.ProfileStats, error) {
	var s model.ProfileStats
	const q = `SELECT
		(SELECT COUNT(*) FROM tasks WHERE giver_id = ?),
		(SELECT COUNT(*) FROM tasks WHERE acceptor_id = ?),
		(SELECT COUNT(*) FROM tasks WHERE (giver_id = ? OR acceptor_id = ?) AND status = 'COMPLETED'),
		(SELECT COUNT(*) FROM task_applications WHERE applicant_id = ?)`
	err := r.DB.QueryRowContext(ctx, q, id, id, id, id, id).
		Scan(&s.TasksGiven, &s.TasksAccepted, &s.TasksCompleted, &s.Applications)
	return s, err
}

// Leaderboard categories.
const (
	LeaderboardGiver    = "giver"
	LeaderboardAcceptor = "acceptor"
	LeaderboardOverall  = "overall"
)

// leaderboardOrder maps a category to its trophy expression and ordering.
// Values are constants so they are safe to splice into SQL.
var leaderboardOrder = map[string][2]string{
	LeaderboardGiver:    {"trophies_given", "trophies_given DESC, giving_rating DESC, user_id"},
	LeaderboardAcceptor: {"trophies_accepted", "trophies_accepted DESC, accepting_rating DESC, user_id"},
	LeaderboardOverall: {"(trophies_given + trophies_accepted)",
		"(trophies_given + trophies_accepted) DESC, ((giving_rating + accepting_rating) / 2) DESC, user_id"},
}

// Leaderboard ranks users for a category.  Unknown categories fall back
// to overall.
func (r *UserRepo) Leaderboard(ctx context.Context, category string, limit int) ([]*model.LeaderboardEntry, error) {
	ord, ok := leaderboardOrder[category]
	if !ok {
		ord = leaderboardOrder[LeaderboardOverall]
	}
	q := `SELECT user_id, username, giving_rating, accepting_rating, trophies_given, trophies_accepted, ` +
		ord[0] + ` AS trophy_count FROM users ORDER BY ` + ord[1] + ` LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.LeaderboardEntry{}
	for rows.Next() {
		e := new(model.LeaderboardEntry)
		if err := rows.Scan(&e.UserID, &e.Username, &e.GivingRating, &e.AcceptingRating,
			&e.TrophiesGiven, &e.TrophiesAccepted, &e.TrophyCount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LockTx takes a row lock on a user for the rest of tx.  Writers of the
// rating aggregates hold it so their read-then-write cannot interleave.
func (r *UserRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, "SELECT user_id FROM users WHERE user_id = ? FOR UPDATE", id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

// AddTrophiesTx increments the role-specific trophy counters of a user.
func (r *UserRepo) AddTrophiesTx(ctx context.Context, tx *sql.Tx, id uint64, given, accepted int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET trophies_given = trophies_given + ?, trophies_accepted = trophies_accepted + ? WHERE user_id = ?",
		given, accepted, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetRatingTx stores a recomputed average and sample count for one rating
// type.
func (r *UserRepo) SetRatingTx(ctx context.Context, tx *sql.Tx, id uint64, ratingType string, avg float64, count int) error {
	q := "UPDATE users SET giving_rating = ?, giving_rating_count = ? WHERE user_id = ?"
	if ratingType == model.RatingAccepting {
		q = "UPDATE users SET accepting_rating = ?, accepting_rating_count = ? WHERE user_id = ?"
	}
	res, err := tx.ExecContext(ctx, q, avg, count, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
