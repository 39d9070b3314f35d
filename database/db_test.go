package database_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/database"
	"github.com/Joel009brave/ref-bot/models"
)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	// Per-test in-memory database to avoid cross-test interference.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := database.New(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertUserIdempotent(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	created, err := s.UpsertUser(1, "alice", "Alice", nil, false, now)
	require.NoError(t, err)
	require.True(t, created)

	applied, err := s.AdjustBalance(1, 5)
	require.NoError(t, err)
	require.True(t, applied)

	// Re-contact with a referrer must not reset the row or attach one.
	referrer := int64(99)
	created, err = s.UpsertUser(1, "alice", "Alice", &referrer, true, now.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, created)

	user, err := s.GetUser(1)
	require.NoError(t, err)
	require.EqualValues(t, 5, user.Balance)
	require.Nil(t, user.ReferrerID)
	require.False(t, user.IsMember)
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(404)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestAdjustBalance(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	_, err := s.UpsertUser(1, "alice", "Alice", nil, false, now)
	require.NoError(t, err)

	applied, err := s.AdjustBalance(1, 7)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = s.AdjustBalance(1, -3)
	require.NoError(t, err)
	require.True(t, applied)

	user, err := s.GetUser(1)
	require.NoError(t, err)
	require.EqualValues(t, 4, user.Balance)

	applied, err = s.AdjustBalance(404, 1)
	require.NoError(t, err)
	require.False(t, applied)
}

func TestTopByBalance(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()

	balances := []int64{50, 10, 50, 0}
	for i, balance := range balances {
		id := int64(i + 1)
		_, err := s.UpsertUser(id, fmt.Sprintf("user%d", id), "", nil, false, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		if balance != 0 {
			_, err = s.AdjustBalance(id, balance)
			require.NoError(t, err)
		}
	}

	top, err := s.TopByBalance(10)
	require.NoError(t, err)
	require.Len(t, top, 4)

	// The two 50-bal users first, earlier signup winning the tie.
	require.EqualValues(t, 1, top[0].UserID)
	require.EqualValues(t, 3, top[1].UserID)
	require.EqualValues(t, 2, top[2].UserID)
	require.EqualValues(t, 4, top[3].UserID)
}

func TestListReferredBy(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()

	_, err := s.UpsertUser(1, "referrer", "", nil, false, base)
	require.NoError(t, err)

	referrer := int64(1)
	for i := 0; i < 3; i++ {
		id := int64(10 + i)
		_, err := s.UpsertUser(id, fmt.Sprintf("ref%d", i), "", &referrer, true, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	referred, err := s.ListReferredBy(1)
	require.NoError(t, err)
	require.Len(t, referred, 3)
	// Most recent join first.
	require.EqualValues(t, 12, referred[0].UserID)
	require.EqualValues(t, 11, referred[1].UserID)
	require.EqualValues(t, 10, referred[2].UserID)
}

func TestReferralLogAppendOnly(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	_, err := s.UpsertUser(1, "alice", "", nil, false, now)
	require.NoError(t, err)
	_, err = s.UpsertUser(2, "bob", "", nil, false, now)
	require.NoError(t, err)

	require.NoError(t, s.AppendReferralRecord(1, 2, 2, models.ReferralCredited, now))
	require.NoError(t, s.AppendReferralRecord(1, 3, 0, models.ReferralNotMember, now.Add(time.Second)))

	logs, err := s.ListReferralLog(10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Newest first; usernames joined in where the users exist.
	require.Equal(t, models.ReferralNotMember, logs[0].Status)
	require.EqualValues(t, 3, logs[0].ReferredID)
	require.Empty(t, logs[0].ReferredUsername)
	require.Equal(t, models.ReferralCredited, logs[1].Status)
	require.Equal(t, "bob", logs[1].ReferredUsername)
	require.Equal(t, "alice", logs[1].ReferrerUsername)
	require.EqualValues(t, 2, logs[1].Amount)
}

func TestGiftRequestTransition(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	id, err := s.CreateGiftRequest(1, "alice", 30, 2, now)
	require.NoError(t, err)
	require.Positive(t, id)

	req, err := s.GetGiftRequest(id)
	require.NoError(t, err)
	require.Equal(t, models.GiftPending, req.Status)
	require.Nil(t, req.DecidedAt)

	decided := now.Add(time.Minute)
	applied, err := s.TransitionGiftRequest(id, models.GiftPending, models.GiftApproved, decided)
	require.NoError(t, err)
	require.True(t, applied)

	// A second transition from pending must no-op.
	applied, err = s.TransitionGiftRequest(id, models.GiftPending, models.GiftRejected, decided)
	require.NoError(t, err)
	require.False(t, applied)

	req, err = s.GetGiftRequest(id)
	require.NoError(t, err)
	require.Equal(t, models.GiftApproved, req.Status)
	require.NotNil(t, req.DecidedAt)
	require.Equal(t, decided.Unix(), req.DecidedAt.Unix())
}

func TestGiftRequestIDsIncrease(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	first, err := s.CreateGiftRequest(1, "alice", 30, 2, now)
	require.NoError(t, err)
	second, err := s.CreateGiftRequest(1, "alice", 60, 4, now)
	require.NoError(t, err)
	require.Greater(t, second, first)
}

func TestGiftRequestNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetGiftRequest(404)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestListPendingExpired(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	window := 12 * time.Hour

	oldID, err := s.CreateGiftRequest(1, "alice", 30, 2, now.Add(-13*time.Hour))
	require.NoError(t, err)
	_, err = s.CreateGiftRequest(2, "bob", 60, 4, now.Add(-time.Hour))
	require.NoError(t, err)

	expired, err := s.ListPendingExpired(now, window)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, oldID, expired[0].ID)

	applied, err := s.TransitionGiftRequest(oldID, models.GiftPending, models.GiftAutoApproved, now)
	require.NoError(t, err)
	require.True(t, applied)

	expired, err = s.ListPendingExpired(now, window)
	require.NoError(t, err)
	require.Empty(t, expired)
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	_, err := s.UpsertUser(1, "a", "", nil, false, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.UpsertUser(2, "b", "", nil, false, now.Add(-3*24*time.Hour))
	require.NoError(t, err)
	_, err = s.UpsertUser(3, "c", "", nil, false, now.Add(-20*24*time.Hour))
	require.NoError(t, err)

	stats, err := s.GetStats(now)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 1, stats.Day)
	require.Equal(t, 2, stats.Week)
	require.Equal(t, 3, stats.Month)
}
