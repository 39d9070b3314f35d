package referral

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/database"
	"github.com/Joel009brave/ref-bot/metrics"
	"github.com/Joel009brave/ref-bot/models"
)

// MembershipChecker answers whether a user currently belongs to a channel.
type MembershipChecker interface {
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// Notifier delivers the referrer-side notification. Implementations must
// not return transport failures into the engine.
type Notifier interface {
	ReferralCredited(referrerID, reward int64)
}

// JoinEvent is a /start contact. ReferrerID is 0 when the start parameter
// carried no referrer.
type JoinEvent struct {
	UserID     int64
	Username   string
	FirstName  string
	ReferrerID int64
}

type Outcome int

const (
	// OutcomeExisting: the user was already registered; nothing was credited.
	OutcomeExisting Outcome = iota
	// OutcomeCreated: new user, no referrer supplied.
	OutcomeCreated
	// OutcomeCredited: new user via a valid referrer who is a channel member.
	OutcomeCredited
	// OutcomeNotMember: new user via a valid referrer, but not a channel member.
	OutcomeNotMember
	// OutcomeInvalidReferrer: new user, referrer supplied but unusable.
	OutcomeInvalidReferrer
)

// ShowMenu reports whether the main menu should follow this outcome. The
// not-a-member branch keeps the menu hidden until the user joins the channel.
func (o Outcome) ShowMenu() bool { return o != OutcomeNotMember }

func (o Outcome) String() string {
	switch o {
	case OutcomeExisting:
		return "existing"
	case OutcomeCreated:
		return "created"
	case OutcomeCredited:
		return "credited"
	case OutcomeNotMember:
		return "not_member"
	case OutcomeInvalidReferrer:
		return "invalid_referrer"
	}
	return "unknown"
}

// Engine decides whether a join event grants referral credit. Credit is
// granted at most once per referred user and only when the membership
// check passes; an unreachable membership oracle counts as not a member,
// since crediting cannot be taken back.
type Engine struct {
	store   *database.Store
	members MembershipChecker
	notify  Notifier
	channel string
	reward  int64
	log     *zap.Logger
}

func NewEngine(store *database.Store, members MembershipChecker, notify Notifier, channel string, reward int64, log *zap.Logger) *Engine {
	return &Engine{
		store:   store,
		members: members,
		notify:  notify,
		channel: channel,
		reward:  reward,
		log:     log,
	}
}

const membershipTimeout = 5 * time.Second

// ProcessJoin registers the joining user and settles referral credit.
func (e *Engine) ProcessJoin(ctx context.Context, ev JoinEvent, now time.Time) (Outcome, error) {
	_, err := e.store.GetUser(ev.UserID)
	switch {
	case err == nil:
		// Repeat contact. Never re-credit; log the attempt when a
		// referrer argument is still attached.
		if ev.ReferrerID != 0 && ev.ReferrerID != ev.UserID {
			if err := e.store.AppendReferralRecord(ev.ReferrerID, ev.UserID, 0, models.ReferralDuplicate, now); err != nil {
				e.log.Warn("failed to log duplicate referral", zap.Error(err))
			}
		}
		metrics.ReferralOutcomes.WithLabelValues(OutcomeExisting.String()).Inc()
		return OutcomeExisting, nil
	case !errors.Is(err, database.ErrNotFound):
		return OutcomeExisting, err
	}

	if ev.ReferrerID == 0 {
		return e.register(ev, nil, false, OutcomeCreated, now)
	}

	if ev.ReferrerID == ev.UserID {
		return e.registerInvalid(ev, now)
	}
	if _, err := e.store.GetUser(ev.ReferrerID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return e.registerInvalid(ev, now)
		}
		return OutcomeCreated, err
	}

	if !e.checkMembership(ctx, ev.UserID) {
		// Referrer relation is kept on the row for audit, but no credit
		// is granted and the log entry records the rejection.
		outcome, err := e.register(ev, &ev.ReferrerID, false, OutcomeNotMember, now)
		if err != nil || outcome != OutcomeNotMember {
			return outcome, err
		}
		if err := e.store.AppendReferralRecord(ev.ReferrerID, ev.UserID, 0, models.ReferralNotMember, now); err != nil {
			e.log.Warn("failed to log rejected referral", zap.Error(err))
		}
		return OutcomeNotMember, nil
	}

	outcome, err := e.register(ev, &ev.ReferrerID, true, OutcomeCredited, now)
	if err != nil || outcome != OutcomeCredited {
		return outcome, err
	}
	if _, err := e.store.AdjustBalance(ev.ReferrerID, e.reward); err != nil {
		return OutcomeCredited, err
	}
	if err := e.store.AppendReferralRecord(ev.ReferrerID, ev.UserID, e.reward, models.ReferralCredited, now); err != nil {
		e.log.Warn("failed to log credited referral", zap.Error(err))
	}
	e.notify.ReferralCredited(ev.ReferrerID, e.reward)
	e.log.Info("referral credited",
		zap.Int64("referrer_id", ev.ReferrerID),
		zap.Int64("referred_id", ev.UserID),
		zap.Int64("reward", e.reward))
	return OutcomeCredited, nil
}

func (e *Engine) register(ev JoinEvent, referrerID *int64, isMember bool, outcome Outcome, now time.Time) (Outcome, error) {
	created, err := e.store.UpsertUser(ev.UserID, ev.Username, ev.FirstName, referrerID, isMember, now)
	if err != nil {
		return outcome, err
	}
	if !created {
		// Raced with another registration for the same user; treat as a
		// repeat contact so nothing is credited twice.
		return OutcomeExisting, nil
	}
	metrics.ReferralOutcomes.WithLabelValues(outcome.String()).Inc()
	return outcome, nil
}

func (e *Engine) registerInvalid(ev JoinEvent, now time.Time) (Outcome, error) {
	outcome, err := e.register(ev, nil, false, OutcomeInvalidReferrer, now)
	if err != nil || outcome != OutcomeInvalidReferrer {
		return outcome, err
	}
	if err := e.store.AppendReferralRecord(ev.ReferrerID, ev.UserID, 0, models.ReferralInvalidReferrer, now); err != nil {
		e.log.Warn("failed to log invalid referral", zap.Error(err))
	}
	return OutcomeInvalidReferrer, nil
}

// checkMembership fails closed: any oracle error means no credit.
func (e *Engine) checkMembership(ctx context.Context, userID int64) bool {
	ctx, cancel := context.WithTimeout(ctx, membershipTimeout)
	defer cancel()

	member, err := e.members.IsMember(ctx, e.channel, userID)
	if err != nil {
		e.log.Warn("membership check failed, treating as non-member",
			zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return member
}
