package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Joel009brave/ref-bot/config"
)

func TestParsePrices(t *testing.T) {
	prices, err := config.ParsePrices("30:2,60:4,120:8,240:16,300:20")
	require.NoError(t, err)
	require.Equal(t, map[int64]int64{30: 2, 60: 4, 120: 8, 240: 16, 300: 20}, prices)
}

func TestParsePricesRejectsMalformedEntries(t *testing.T) {
	for _, s := range []string{"", "30", "30:", ":2", "30:2,abc:4", "0:1", "30:-2"} {
		_, err := config.ParsePrices(s)
		require.Error(t, err, "input %q", s)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("ADMIN_ID", "42")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.EqualValues(t, 2, cfg.ReferralReward)
	require.Equal(t, 12*time.Hour, cfg.DecisionWindow)
	require.Equal(t, time.Minute, cfg.SweepInterval)
	require.Equal(t, "bot_database.db", cfg.DatabaseFile)
	require.EqualValues(t, 2, cfg.GiftPrices[30])
	require.EqualValues(t, 20, cfg.GiftPrices[300])
	require.True(t, cfg.IsAdmin(42))
	require.False(t, cfg.IsAdmin(7))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("REFERRAL_REWARD", "5")
	t.Setenv("GIFT_PRICES", "10:1,20:3")
	t.Setenv("DECISION_WINDOW", "6h")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.EqualValues(t, 5, cfg.ReferralReward)
	require.Equal(t, map[int64]int64{10: 1, 20: 3}, cfg.GiftPrices)
	require.Equal(t, 6*time.Hour, cfg.DecisionWindow)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_ID", "42")

	_, err := config.Load()
	require.Error(t, err)
}
