package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken        string
	BotUsername     string
	AdminID         int64
	TargetChannel   string
	ApprovalChannel string
	DatabaseFile    string
	ReferralReward  int64
	GiftPrices      map[int64]int64
	DecisionWindow  time.Duration
	SweepInterval   time.Duration
	KeepAliveAddr   string
}

const defaultGiftPrices = "30:2,60:4,120:8,240:16,300:20"

func Load() (*Config, error) {
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is required")
	}

	adminID, err := strconv.ParseInt(os.Getenv("ADMIN_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_ID environment variable is required: %w", err)
	}

	cfg := &Config{
		BotToken:        botToken,
		BotUsername:     getenv("BOT_USERNAME", "Kingref90_bot"),
		AdminID:         adminID,
		TargetChannel:   getenv("TARGET_CHANNEL", "@darktunnel_ssh_tm"),
		ApprovalChannel: getenv("APPROVAL_CHANNEL", "@kingvvod"),
		DatabaseFile:    getenv("DATABASE_FILE", "bot_database.db"),
		ReferralReward:  2,
		DecisionWindow:  12 * time.Hour,
		SweepInterval:   time.Minute,
		KeepAliveAddr:   getenv("KEEPALIVE_ADDR", ":8080"),
	}

	if env := os.Getenv("REFERRAL_REWARD"); env != "" {
		reward, err := strconv.ParseInt(env, 10, 64)
		if err != nil || reward < 0 {
			return nil, fmt.Errorf("invalid REFERRAL_REWARD %q", env)
		}
		cfg.ReferralReward = reward
	}

	cfg.GiftPrices, err = ParsePrices(getenv("GIFT_PRICES", defaultGiftPrices))
	if err != nil {
		return nil, err
	}

	if env := os.Getenv("DECISION_WINDOW"); env != "" {
		window, err := time.ParseDuration(env)
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("invalid DECISION_WINDOW %q", env)
		}
		cfg.DecisionWindow = window
	}

	if env := os.Getenv("SWEEP_INTERVAL"); env != "" {
		interval, err := time.ParseDuration(env)
		if err != nil || interval <= 0 {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL %q", env)
		}
		cfg.SweepInterval = interval
	}

	return cfg, nil
}

// ParsePrices parses a "cost:reward,cost:reward" list into the gift price table.
func ParsePrices(s string) (map[int64]int64, error) {
	prices := make(map[int64]int64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid gift price entry %q", pair)
		}
		cost, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil || cost <= 0 {
			return nil, fmt.Errorf("invalid gift cost in %q", pair)
		}
		reward, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || reward <= 0 {
			return nil, fmt.Errorf("invalid gift reward in %q", pair)
		}
		prices[cost] = reward
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("empty gift price table %q", s)
	}
	return prices, nil
}

func (c *Config) IsAdmin(userID int64) bool {
	return userID == c.AdminID
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
