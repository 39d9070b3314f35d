package gift

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/database"
	"github.com/Joel009brave/ref-bot/metrics"
	"github.com/Joel009brave/ref-bot/models"
)

var (
	ErrInvalidAmount       = errors.New("gift: invalid amount")
	ErrUnknownCost         = errors.New("gift: no gift for this cost")
	ErrUserNotFound        = errors.New("gift: user not found")
	ErrInsufficientBalance = errors.New("gift: insufficient balance")
	ErrNotFound            = errors.New("gift: request not found")
	ErrAlreadyResolved     = errors.New("gift: request already resolved")
)

// Notifier receives the workflow's notification intents. Deliveries are
// fire-and-forget; implementations log failures and never report them back.
type Notifier interface {
	ApprovalRequested(req *models.GiftRequest)
	PurchaseConfirmed(req *models.GiftRequest, newBalance int64)
	GiftApproved(req *models.GiftRequest)
	GiftRejected(req *models.GiftRequest)
	GiftAutoApproved(req *models.GiftRequest)
	DecisionRecorded(messageID int, req *models.GiftRequest)
}

// Workflow turns balance into pending gift requests and settles them on
// admin decisions. The cost is reserved at purchase time; only a rejection
// gives it back.
type Workflow struct {
	store  *database.Store
	notify Notifier
	prices map[int64]int64
	log    *zap.Logger
}

func NewWorkflow(store *database.Store, notify Notifier, prices map[int64]int64, log *zap.Logger) *Workflow {
	return &Workflow{store: store, notify: notify, prices: prices, log: log}
}

// Prices returns the cost→reward table.
func (w *Workflow) Prices() map[int64]int64 { return w.prices }

// Purchase validates the requested cost tier, reserves the bal cost and
// opens a pending request. costArg is the raw command argument.
func (w *Workflow) Purchase(userID int64, username, costArg string, now time.Time) (*models.GiftRequest, error) {
	cost, err := strconv.ParseInt(strings.TrimSpace(costArg), 10, 64)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	reward, ok := w.prices[cost]
	if !ok {
		return nil, ErrUnknownCost
	}

	user, err := w.store.GetUser(userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Balance < cost {
		return nil, ErrInsufficientBalance
	}

	// Reserve the cost up front; a rejection is the only path that
	// returns it.
	if _, err := w.store.AdjustBalance(userID, -cost); err != nil {
		return nil, err
	}

	id, err := w.store.CreateGiftRequest(userID, username, cost, reward, now)
	if err != nil {
		// The request row never existed, so the reservation has no owner.
		if _, refundErr := w.store.AdjustBalance(userID, cost); refundErr != nil {
			w.log.Error("failed to release reservation", zap.Int64("user_id", userID), zap.Error(refundErr))
		}
		return nil, err
	}

	req := &models.GiftRequest{
		ID:        id,
		UserID:    userID,
		Username:  username,
		BalCost:   cost,
		Reward:    reward,
		Status:    models.GiftPending,
		CreatedAt: now,
	}

	metrics.GiftRequestsCreated.Inc()
	w.log.Info("gift request created",
		zap.Int64("request_id", id),
		zap.Int64("user_id", userID),
		zap.Int64("cost", cost),
		zap.Int64("reward", reward))

	w.notify.ApprovalRequested(req)
	w.notify.PurchaseConfirmed(req, user.Balance-cost)
	return req, nil
}

// Resolve settles a pending request with an admin decision. messageID is
// the approval-channel post the decision buttons were attached to. A
// request already settled, by a second admin action or by the sweeper,
// yields ErrAlreadyResolved and changes nothing.
func (w *Workflow) Resolve(requestID int64, decision models.GiftStatus, messageID int, now time.Time) (*models.GiftRequest, error) {
	if decision != models.GiftApproved && decision != models.GiftRejected {
		return nil, fmt.Errorf("gift: invalid decision %q", decision)
	}

	req, err := w.store.GetGiftRequest(requestID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, ErrAlreadyResolved
	}

	applied, err := w.store.TransitionGiftRequest(requestID, models.GiftPending, decision, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race against the sweeper or another admin action.
		return nil, ErrAlreadyResolved
	}

	req.Status = decision
	req.DecidedAt = &now

	if decision == models.GiftRejected {
		if _, err := w.store.AdjustBalance(req.UserID, req.BalCost); err != nil {
			// The transition already applied, so surface the failed
			// refund instead of retrying into a double credit.
			w.log.Error("refund failed", zap.Int64("request_id", requestID), zap.Error(err))
			return nil, err
		}
		w.notify.GiftRejected(req)
	} else {
		w.notify.GiftApproved(req)
	}
	w.notify.DecisionRecorded(messageID, req)

	metrics.GiftSettlements.WithLabelValues(string(decision)).Inc()
	w.log.Info("gift request resolved",
		zap.Int64("request_id", requestID),
		zap.String("decision", string(decision)))
	return req, nil
}
