package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/credo/internal/metrics"
	"github.com/iliyamo/credo/internal/model"
	"github.com/iliyamo/credo/internal/repository"
)

// LeaderboardSize is how many users a leaderboard lists.
const LeaderboardSize = 50

// seedRating is the virtual first rating every average starts from.
var seedRating = decimal.NewFromInt(5)

// nextAverage folds the seed into the mean of the real ratings:
// (5 + sum) / (count + 1), rounded to four places.
func nextAverage(sum, count int64) float64 {
	return seedRating.Add(decimal.NewFromInt(sum)).
		Div(decimal.NewFromInt(count + 1)).
		Round(4).
		InexactFloat64()
}

// RateInput is a rating submitted by the caller.  RatedID may be zero when
// the caller has exactly one person they are allowed to rate on the task.
type RateInput struct {
	TaskID  uint64
	RatedID uint64
	Value   int
	Comment string
}

// Reputation owns ratings, trophies and the read models built on them.
// It is also the EventHandler for the lifecycle engine and the only code
// that writes the aggregate columns of users.
type Reputation struct {
	db      *sql.DB
	users   *repository.UserRepo
	tasks   *repository.TaskRepo
	apps    *repository.ApplicationRepo
	ratings *repository.RatingRepo
	pub     Publisher
}

// NewReputation wires the subsystem; pub may be nil.
func NewReputation(db *sql.DB, users *repository.UserRepo, tasks *repository.TaskRepo,
	apps *repository.ApplicationRepo, ratings *repository.RatingRepo, pub Publisher) *Reputation {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Reputation{db: db, users: users, tasks: tasks, apps: apps, ratings: ratings, pub: pub}
}

// Apply updates user aggregates for ev inside tx.  For RatingSubmitted the
// caller must already hold the rated user's row lock.
func (r *Reputation) Apply(ctx context.Context, tx *sql.Tx, ev Event) error {
	switch e := ev.(type) {
	case TaskCompleted:
		if err := r.users.AddTrophiesTx(ctx, tx, e.GiverID, 1, 0); err != nil {
			return wrap("giver trophy", err)
		}
		if err := r.users.AddTrophiesTx(ctx, tx, e.AcceptorID, 0, 1); err != nil {
			return wrap("acceptor trophy", err)
		}
	case RatingSubmitted:
		count, sum, err := r.ratings.TotalsTx(ctx, tx, e.RatedID, e.Type)
		if err != nil {
			return wrap("rating totals", err)
		}
		if err := r.users.SetRatingTx(ctx, tx, e.RatedID, e.Type, nextAverage(sum, count), int(count)); err != nil {
			return wrap("store rating", err)
		}
	}
	return nil
}

// rateTarget is someone the rater may rate on a task, and in which role.
type rateTarget struct {
	userID     uint64
	ratingType string
}

// eligibleTargets lists who rater may rate on t.  A completed task lets
// its two parties rate each other.  Past participation adds: the giver may
// rate an acceptor who withdrew; an acceptor who was removed, or whose
// task was cancelled under them, may rate the giver.
func eligibleTargets(t *model.Task, rater uint64, records []model.ParticipationRecord) []rateTarget {
	var out []rateTarget
	if t.Status == model.TaskCompleted && t.HasAcceptor() {
		switch rater {
		case t.GiverID:
			out = append(out, rateTarget{*t.AcceptorID, model.RatingAccepting})
		case *t.AcceptorID:
			out = append(out, rateTarget{t.GiverID, model.RatingGiving})
		}
	}
	for _, rec := range records {
		switch rec.Outcome {
		case model.OutcomeWithdrawn:
			if rater == t.GiverID {
				out = append(out, rateTarget{rec.UserID, model.RatingAccepting})
			}
		case model.OutcomeRemoved:
			if rater == rec.UserID {
				out = append(out, rateTarget{t.GiverID, model.RatingGiving})
			}
		case model.OutcomeCancelled:
			if rater == rec.UserID && t.Status == model.TaskCancelled {
				out = append(out, rateTarget{t.GiverID, model.RatingGiving})
			}
		}
	}
	return out
}

// Rate stores caller's rating for one participant of a task and folds it
// into the rated user's average, atomically.
func (r *Reputation) Rate(ctx context.Context, caller uint64, in RateInput) (*model.Rating, error) {
	if in.Value < 1 || in.Value > 5 {
		return nil, invalid("rating value must be between 1 and 5")
	}
	var comment *string
	if c := strings.TrimSpace(in.Comment); c != "" {
		comment = &c
	}

	var rating *model.Rating
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		t, err := r.tasks.GetForUpdateTx(ctx, tx, in.TaskID)
		if errors.Is(err, repository.ErrTaskNotFound) {
			return notFound("task not found")
		}
		if err != nil {
			return wrap("load task", err)
		}
		records, err := r.apps.ParticipationsTx(ctx, tx, in.TaskID)
		if err != nil {
			return wrap("load participations", err)
		}
		targets := eligibleTargets(t, caller, records)
		if len(targets) == 0 {
			return forbidden("not eligible to rate on this task")
		}
		target, ok := pickTarget(targets, in.RatedID)
		if !ok {
			return forbidden("not eligible to rate this user")
		}
		// Serialises ratings of the same user across tasks.
		if err := r.users.LockTx(ctx, tx, target.userID); err != nil {
			return wrap("lock rated user", err)
		}

		done, err := r.ratings.ExistsTx(ctx, tx, in.TaskID, caller)
		if err != nil {
			return wrap("check rating", err)
		}
		if done {
			return conflict("already rated this task")
		}

		rating = &model.Rating{
			TaskID:  in.TaskID,
			RaterID: caller,
			RatedID: target.userID,
			Value:   in.Value,
			Type:    target.ratingType,
			Comment: comment,
		}
		if err := r.ratings.CreateTx(ctx, tx, rating); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("already rated this task")
			}
			return wrap("insert rating", err)
		}
		return r.Apply(ctx, tx, ratingEvent(rating))
	})
	if err != nil {
		return nil, err
	}
	metrics.RatingsSubmitted.WithLabelValues(rating.Type).Inc()
	publish(ctx, r.pub, ratingEvent(rating))
	return rating, nil
}

func ratingEvent(rt *model.Rating) RatingSubmitted {
	return RatingSubmitted{TaskID: rt.TaskID, RaterID: rt.RaterID, RatedID: rt.RatedID, Type: rt.Type, Value: rt.Value}
}

// pickTarget selects the target matching ratedID, or the only target when
// ratedID is zero.
func pickTarget(targets []rateTarget, ratedID uint64) (rateTarget, bool) {
	if ratedID == 0 {
		if len(targets) == 1 {
			return targets[0], true
		}
		return rateTarget{}, false
	}
	for _, t := range targets {
		if t.userID == ratedID {
			return t, true
		}
	}
	return rateTarget{}, false
}

// HasRated reports whether caller already rated someone on the task.
func (r *Reputation) HasRated(ctx context.Context, taskID, caller uint64) (bool, error) {
	ok, err := r.ratings.Exists(ctx, taskID, caller)
	if err != nil {
		return false, wrap("check rating", err)
	}
	return ok, nil
}

// GetProfile returns a user's public reputation and activity counters.
func (r *Reputation) GetProfile(ctx context.Context, userID uint64) (*model.Profile, error) {
	u, err := r.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, notFound("user not found")
	}
	if err != nil {
		return nil, wrap("load user", err)
	}
	stats, err := r.users.Stats(ctx, userID)
	if err != nil {
		return nil, wrap("profile stats", err)
	}
	return &model.Profile{User: *u, TotalTrophies: u.TotalTrophies(), Stats: stats}, nil
}

// UpdateProfile changes caller's contact details.
func (r *Reputation) UpdateProfile(ctx context.Context, caller uint64, phone, roll string) (*model.Profile, error) {
	phone, roll = strings.TrimSpace(phone), strings.TrimSpace(roll)
	if phone == "" || roll == "" {
		return nil, invalid("phone_number and roll_number are required")
	}
	err := r.users.UpdateContact(ctx, caller, phone, roll)
	switch {
	case errors.Is(err, repository.ErrPhoneExists), errors.Is(err, repository.ErrRollExists):
		return nil, conflict(err.Error())
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, notFound("user not found")
	case err != nil:
		return nil, wrap("update profile", err)
	}
	return r.GetProfile(ctx, caller)
}

// ListRatingsReceived lists the ratings a user received, newest first.
func (r *Reputation) ListRatingsReceived(ctx context.Context, userID uint64) ([]*model.RatingReceived, error) {
	if _, err := r.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("user not found")
		}
		return nil, wrap("load user", err)
	}
	out, err := r.ratings.ListReceived(ctx, userID)
	if err != nil {
		return nil, wrap("list ratings", err)
	}
	return out, nil
}

// Leaderboard ranks users by category: giver, acceptor or overall.  Any
// other value is treated as overall.
func (r *Reputation) Leaderboard(ctx context.Context, category string) ([]*model.LeaderboardEntry, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	switch category {
	case repository.LeaderboardGiver, repository.LeaderboardAcceptor:
	default:
		category = repository.LeaderboardOverall
	}
	out, err := r.users.Leaderboard(ctx, category, LeaderboardSize)
	if err != nil {
		return nil, wrap("leaderboard", err)
	}
	return out, nil
}
