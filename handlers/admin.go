package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/config"
	"github.com/Joel009brave/ref-bot/database"
	"github.com/Joel009brave/ref-bot/gift"
	"github.com/Joel009brave/ref-bot/localization"
	"github.com/Joel009brave/ref-bot/models"
)

type AdminHandler struct {
	bot   *tgbotapi.BotAPI
	db    *database.Store
	gifts *gift.Workflow
	cfg   *config.Config
	loc   *localization.Catalog
	log   *zap.Logger
}

func NewAdminHandler(bot *tgbotapi.BotAPI, db *database.Store, gifts *gift.Workflow, cfg *config.Config, loc *localization.Catalog, log *zap.Logger) *AdminHandler {
	return &AdminHandler{bot: bot, db: db, gifts: gifts, cfg: cfg, loc: loc, log: log}
}

func (h *AdminHandler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.log.Warn("failed to send message", zap.Error(err))
	}
}

func (h *AdminHandler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	h.send(msg)
}

// HandleCommand handles "/admin ..." subcommands.
func (h *AdminHandler) HandleCommand(update tgbotapi.Update) {
	userID := update.Message.From.ID
	if !h.cfg.IsAdmin(userID) {
		h.sendText(userID, h.loc.Get("admin_only"))
		return
	}

	args := strings.Fields(update.Message.CommandArguments())
	if len(args) == 0 {
		h.sendText(userID, h.loc.Get("admin_help"))
		return
	}

	switch strings.ToLower(args[0]) {
	case "users":
		h.handleUsers(userID)
	case "logs":
		h.handleLogs(userID)
	case "stats":
		h.handleStats(userID)
	case "setbal":
		if len(args) == 3 {
			h.handleSetBalance(userID, args[1], args[2])
			return
		}
		h.sendText(userID, h.loc.Get("admin_help"))
	default:
		h.sendText(userID, h.loc.Get("admin_help"))
	}
}

func (h *AdminHandler) handleUsers(adminID int64) {
	users, err := h.db.ListUsers(20)
	if err != nil {
		h.log.Error("failed to list users", zap.Error(err))
		return
	}
	if len(users) == 0 {
		h.sendText(adminID, h.loc.Get("admin_no_users"))
		return
	}

	text := h.loc.Get("admin_users_header")
	for i, user := range users {
		username := usernameOr(user.Username, fmt.Sprintf("User_%d", user.UserID))
		text += h.loc.Get("admin_users_entry",
			i+1, username, nameOr(user.FirstName), user.Balance, user.UserID)
	}
	if stats, err := h.db.GetStats(time.Now()); err == nil && stats.Total > len(users) {
		text += h.loc.Get("admin_users_more", stats.Total-len(users))
	}
	h.sendText(adminID, text)
}

func (h *AdminHandler) handleLogs(adminID int64) {
	logs, err := h.db.ListReferralLog(20)
	if err != nil {
		h.log.Error("failed to list referral log", zap.Error(err))
		return
	}
	if len(logs) == 0 {
		h.sendText(adminID, h.loc.Get("admin_no_logs"))
		return
	}

	text := h.loc.Get("admin_logs_header")
	for i, rec := range logs {
		referrer := usernameOr(rec.ReferrerUsername, fmt.Sprintf("ID_%d", rec.ReferrerID))
		referred := usernameOr(rec.ReferredUsername, fmt.Sprintf("ID_%d", rec.ReferredID))
		text += h.loc.Get("admin_logs_entry",
			i+1, statusMarker(rec.Status), referrer, referred, rec.Amount,
			rec.CreatedAt.Format(timeLayout))
	}
	h.sendText(adminID, text)
}

func (h *AdminHandler) handleStats(adminID int64) {
	stats, err := h.db.GetStats(time.Now())
	if err != nil {
		h.log.Error("failed to load stats", zap.Error(err))
		return
	}
	h.sendText(adminID, h.loc.Get("admin_stats", stats.Total, stats.Day, stats.Week, stats.Month))
}

// handleSetBalance drives the user's balance to a target value through
// the store's relative-adjust primitive.
func (h *AdminHandler) handleSetBalance(adminID int64, idArg, balArg string) {
	targetID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		h.sendText(adminID, h.loc.Get("admin_help"))
		return
	}
	targetBalance, err := strconv.ParseInt(balArg, 10, 64)
	if err != nil {
		h.sendText(adminID, h.loc.Get("admin_help"))
		return
	}

	user, err := h.db.GetUser(targetID)
	if err != nil {
		h.sendText(adminID, h.loc.Get("user_not_found"))
		return
	}
	if _, err := h.db.AdjustBalance(targetID, targetBalance-user.Balance); err != nil {
		h.log.Error("failed to set balance", zap.Int64("user_id", targetID), zap.Error(err))
		return
	}
	h.sendText(adminID, h.loc.Get("admin_setbal_ok", targetID, targetBalance))
}

// HandleCallback handles approve/reject/userinfo button presses from the
// approval channel. Presses by anyone but the admin are ignored.
func (h *AdminHandler) HandleCallback(query *tgbotapi.CallbackQuery) {
	if !h.cfg.IsAdmin(query.From.ID) {
		return
	}
	defer func() {
		if _, err := h.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			h.log.Warn("failed to answer callback", zap.Error(err))
		}
	}()

	messageID := 0
	if query.Message != nil {
		messageID = query.Message.MessageID
	}

	switch {
	case strings.HasPrefix(query.Data, callbackApprovePrefix):
		h.resolve(query.From.ID, strings.TrimPrefix(query.Data, callbackApprovePrefix), models.GiftApproved, messageID)
	case strings.HasPrefix(query.Data, callbackRejectPrefix):
		h.resolve(query.From.ID, strings.TrimPrefix(query.Data, callbackRejectPrefix), models.GiftRejected, messageID)
	case strings.HasPrefix(query.Data, callbackUserInfoPrefix):
		h.handleUserInfo(query.From.ID, strings.TrimPrefix(query.Data, callbackUserInfoPrefix))
	}
}

func (h *AdminHandler) resolve(adminID int64, idArg string, decision models.GiftStatus, messageID int) {
	requestID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		h.log.Warn("malformed callback data", zap.String("id", idArg))
		return
	}

	_, err = h.gifts.Resolve(requestID, decision, messageID, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, gift.ErrNotFound), errors.Is(err, gift.ErrAlreadyResolved):
		h.sendText(adminID, h.loc.Get("gift_conflict"))
	default:
		h.log.Error("failed to resolve gift request", zap.Int64("request_id", requestID), zap.Error(err))
	}
}

func (h *AdminHandler) handleUserInfo(adminID int64, idArg string) {
	targetID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		h.log.Warn("malformed callback data", zap.String("id", idArg))
		return
	}

	user, err := h.db.GetUser(targetID)
	if err != nil {
		h.sendText(adminID, h.loc.Get("user_not_found"))
		return
	}
	referrals, err := h.db.ListReferredBy(targetID)
	if err != nil {
		h.log.Error("failed to list referrals", zap.Int64("user_id", targetID), zap.Error(err))
		return
	}

	h.sendText(adminID, h.loc.Get("userinfo",
		user.UserID, nameOr(user.FirstName), usernameOr(user.Username, "None"),
		user.Balance, len(referrals), user.JoinDate.Format(timeLayout)))
}

func statusMarker(status models.ReferralStatus) string {
	switch status {
	case models.ReferralCredited:
		return "✅"
	case models.ReferralNotMember:
		return "❌"
	case models.ReferralDuplicate:
		return "⚠️"
	default:
		return "❓"
	}
}

const (
	callbackApprovePrefix  = "approve_"
	callbackRejectPrefix   = "reject_"
	callbackUserInfoPrefix = "userinfo_"
)

func callbackApprove(requestID int64) string {
	return callbackApprovePrefix + strconv.FormatInt(requestID, 10)
}

func callbackReject(requestID int64) string {
	return callbackRejectPrefix + strconv.FormatInt(requestID, 10)
}

func callbackUserInfo(userID int64) string {
	return callbackUserInfoPrefix + strconv.FormatInt(userID, 10)
}
