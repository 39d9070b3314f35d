package gift_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/database"
	"github.com/Joel009brave/ref-bot/gift"
	"github.com/Joel009brave/ref-bot/models"
)

const testWindow = 12 * time.Hour

func newTestSweeper(t *testing.T) (*gift.Sweeper, *gift.Workflow, *database.Store, *fakeNotifier) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	store, err := database.New(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	notifier := &fakeNotifier{}
	workflow := gift.NewWorkflow(store, notifier, testPrices, zap.NewNop())
	sweeper := gift.NewSweeper(store, notifier, testWindow, time.Minute, zap.NewNop())
	return sweeper, workflow, store, notifier
}

func TestSweepAutoApprovesExpired(t *testing.T) {
	sweeper, workflow, store, notifier := newTestSweeper(t)
	seedUser(t, store, 1, 30)

	req, err := workflow.Purchase(1, "carol", "30", time.Now().Add(-13*time.Hour))
	require.NoError(t, err)

	now := time.Now()
	require.Equal(t, 1, sweeper.Sweep(now))

	stored, err := store.GetGiftRequest(req.ID)
	require.NoError(t, err)
	require.Equal(t, models.GiftAutoApproved, stored.Status)
	require.NotNil(t, stored.DecidedAt)

	// No refund on auto-approval; the cost stays deducted.
	require.Zero(t, balanceOf(t, store, 1))
	require.Equal(t, []int64{req.ID}, notifier.autoApproved)

	// Repeated sweeps find nothing left to settle.
	require.Zero(t, sweeper.Sweep(now))
	require.Len(t, notifier.autoApproved, 1)
}

func TestSweepSkipsFreshRequests(t *testing.T) {
	sweeper, workflow, store, notifier := newTestSweeper(t)
	seedUser(t, store, 1, 30)

	req, err := workflow.Purchase(1, "carol", "30", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	require.Zero(t, sweeper.Sweep(time.Now()))

	stored, err := store.GetGiftRequest(req.ID)
	require.NoError(t, err)
	require.Equal(t, models.GiftPending, stored.Status)
	require.Empty(t, notifier.autoApproved)
}

func TestSweepLosesRaceToAdminDecision(t *testing.T) {
	sweeper, workflow, store, notifier := newTestSweeper(t)
	seedUser(t, store, 1, 30)

	req, err := workflow.Purchase(1, "carol", "30", time.Now().Add(-13*time.Hour))
	require.NoError(t, err)

	_, err = workflow.Resolve(req.ID, models.GiftRejected, 500, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 30, balanceOf(t, store, 1))

	// The admin settled it first; the sweep must not touch it again.
	require.Zero(t, sweeper.Sweep(time.Now()))

	stored, err := store.GetGiftRequest(req.ID)
	require.NoError(t, err)
	require.Equal(t, models.GiftRejected, stored.Status)
	require.EqualValues(t, 30, balanceOf(t, store, 1))
	require.Empty(t, notifier.autoApproved)
}

func TestAdminLosesRaceToSweeper(t *testing.T) {
	sweeper, workflow, store, _ := newTestSweeper(t)
	seedUser(t, store, 1, 30)

	req, err := workflow.Purchase(1, "carol", "30", time.Now().Add(-13*time.Hour))
	require.NoError(t, err)

	require.Equal(t, 1, sweeper.Sweep(time.Now()))

	// A late rejection cannot fire a refund after auto-approval.
	_, err = workflow.Resolve(req.ID, models.GiftRejected, 500, time.Now())
	require.ErrorIs(t, err, gift.ErrAlreadyResolved)
	require.Zero(t, balanceOf(t, store, 1))
}
