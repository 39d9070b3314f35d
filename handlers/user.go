package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/config"
	"github.com/Joel009brave/ref-bot/database"
	"github.com/Joel009brave/ref-bot/gift"
	"github.com/Joel009brave/ref-bot/localization"
	"github.com/Joel009brave/ref-bot/models"
	"github.com/Joel009brave/ref-bot/referral"
)

// Main menu reply-keyboard labels; plain messages are routed on them.
const (
	BtnBalance   = "💰 Balans"
	BtnReferrals = "👥 Çagyranlarym"
	BtnTop       = "🏆 Top 10"
	BtnGifts     = "🎁 Sowgatlar"
	BtnVvod      = "📝 VVOD"
	BtnHome      = "🏠 Baş sahypa"
)

type UserHandler struct {
	bot      *tgbotapi.BotAPI
	db       *database.Store
	engine   *referral.Engine
	gifts    *gift.Workflow
	cfg      *config.Config
	loc      *localization.Catalog
	log      *zap.Logger
	sessions map[int64]*models.UserSession
}

func NewUserHandler(bot *tgbotapi.BotAPI, db *database.Store, engine *referral.Engine, gifts *gift.Workflow, cfg *config.Config, loc *localization.Catalog, log *zap.Logger) *UserHandler {
	return &UserHandler{
		bot:      bot,
		db:       db,
		engine:   engine,
		gifts:    gifts,
		cfg:      cfg,
		loc:      loc,
		log:      log,
		sessions: make(map[int64]*models.UserSession),
	}
}

func (h *UserHandler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.log.Warn("failed to send message", zap.Error(err))
	}
}

func (h *UserHandler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	h.send(msg)
}

// EnsureUser registers the sender if unknown. Plain re-contact carries no
// referral, so registration here never credits anyone.
func (h *UserHandler) EnsureUser(message *tgbotapi.Message) {
	userID := message.From.ID
	if _, err := h.db.GetUser(userID); err == nil {
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		h.log.Error("failed to look up user", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if _, err := h.db.UpsertUser(userID, message.From.UserName, message.From.FirstName, nil, false, time.Now()); err != nil {
		h.log.Error("failed to register user", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// HandleStart routes /start through the referral engine.
func (h *UserHandler) HandleStart(ctx context.Context, update tgbotapi.Update) {
	from := update.Message.From

	var referrerID int64
	if args := update.Message.CommandArguments(); args != "" {
		if id, err := strconv.ParseInt(args, 10, 64); err == nil {
			referrerID = id
		}
	}

	outcome, err := h.engine.ProcessJoin(ctx, referral.JoinEvent{
		UserID:     from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		ReferrerID: referrerID,
	}, time.Now())
	if err != nil {
		h.log.Error("failed to process join", zap.Int64("user_id", from.ID), zap.Error(err))
		return
	}

	switch outcome {
	case referral.OutcomeCredited:
		h.sendText(from.ID, h.loc.Get("referred_welcome"))
	case referral.OutcomeNotMember:
		h.sendText(from.ID, h.loc.Get("join_channel_first", h.cfg.TargetChannel))
	}
	if outcome.ShowMenu() {
		h.SendMainMenu(from.ID)
	}
}

func (h *UserHandler) SendMainMenu(userID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnBalance),
			tgbotapi.NewKeyboardButton(BtnReferrals),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnTop),
			tgbotapi.NewKeyboardButton(BtnGifts),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnVvod),
			tgbotapi.NewKeyboardButton(BtnHome),
		),
	)

	msg := tgbotapi.NewMessage(userID, h.loc.Get("main_menu", h.cfg.ReferralReward, h.cfg.TargetChannel))
	msg.ReplyMarkup = keyboard
	h.send(msg)
}

// HandleText routes non-command messages: VVOD forwarding first, then the
// menu buttons.
func (h *UserHandler) HandleText(update tgbotapi.Update) {
	userID := update.Message.From.ID

	if session, ok := h.sessions[userID]; ok && session.State == models.StateAwaitingVvod {
		h.handleVvodMessage(update.Message)
		return
	}

	switch update.Message.Text {
	case BtnBalance:
		h.handleBalance(userID)
	case BtnReferrals:
		h.handleReferrals(userID)
	case BtnTop:
		h.handleTop(userID)
	case BtnGifts:
		h.handleGifts(userID)
	case BtnVvod:
		h.startVvod(userID)
	case BtnHome:
		h.SendMainMenu(userID)
	default:
		h.sendText(userID, h.loc.Get("unknown_command"))
	}
}

func (h *UserHandler) handleBalance(userID int64) {
	user, err := h.db.GetUser(userID)
	if err != nil {
		h.sendText(userID, h.loc.Get("user_not_found"))
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=%d", h.cfg.BotUsername, user.UserID)
	h.sendText(userID, h.loc.Get("balance", user.Balance, link, h.cfg.ReferralReward))
}

func (h *UserHandler) handleReferrals(userID int64) {
	referrals, err := h.db.ListReferredBy(userID)
	if err != nil {
		h.log.Error("failed to list referrals", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if len(referrals) == 0 {
		h.sendText(userID, h.loc.Get("referrals_none"))
		return
	}

	text := h.loc.Get("referrals_header")
	for i, ref := range referrals {
		if i == 10 {
			break
		}
		text += h.loc.Get("referrals_entry",
			i+1, usernameOr(ref.Username, "No username"), nameOr(ref.FirstName),
			ref.JoinDate.Format("2006-01-02"))
	}
	if len(referrals) > 10 {
		text += h.loc.Get("referrals_more", len(referrals)-10)
	}
	h.sendText(userID, text)
}

func (h *UserHandler) handleTop(userID int64) {
	top, err := h.db.TopByBalance(10)
	if err != nil {
		h.log.Error("failed to load top users", zap.Error(err))
		return
	}
	if len(top) == 0 {
		h.sendText(userID, h.loc.Get("top_none"))
		return
	}

	text := h.loc.Get("top_header")
	for i, user := range top {
		marker := fmt.Sprintf("%d.", i+1)
		switch i {
		case 0:
			marker = "🥇"
		case 1:
			marker = "🥈"
		case 2:
			marker = "🥉"
		}
		text += h.loc.Get("top_entry",
			marker, usernameOr(user.Username, "No username"), nameOr(user.FirstName), user.Balance)
	}
	h.sendText(userID, text)
}

func (h *UserHandler) handleGifts(userID int64) {
	user, err := h.db.GetUser(userID)
	if err != nil {
		h.sendText(userID, h.loc.Get("user_not_found"))
		return
	}

	prices := h.gifts.Prices()
	costs := make([]int64, 0, len(prices))
	for cost := range prices {
		costs = append(costs, cost)
	}
	sort.Slice(costs, func(i, j int) bool { return costs[i] < costs[j] })

	text := h.loc.Get("gifts_header", user.Balance)
	for _, cost := range costs {
		marker := "❌"
		if user.Balance >= cost {
			marker = "✅"
		}
		text += h.loc.Get("gifts_entry", marker, cost, prices[cost])
	}
	text += h.loc.Get("gifts_footer")
	h.sendText(userID, text)
}

// HandleGiftPurchase handles "/gift <cost>".
func (h *UserHandler) HandleGiftPurchase(update tgbotapi.Update) {
	from := update.Message.From
	costArg := update.Message.CommandArguments()

	_, err := h.gifts.Purchase(from.ID, from.UserName, costArg, time.Now())
	if err == nil {
		return // the workflow already confirmed to the user
	}

	switch {
	case errors.Is(err, gift.ErrInvalidAmount):
		h.sendText(from.ID, h.loc.Get("gift_invalid_amount"))
	case errors.Is(err, gift.ErrUnknownCost):
		h.sendText(from.ID, h.loc.Get("gift_unknown_cost"))
	case errors.Is(err, gift.ErrUserNotFound):
		h.sendText(from.ID, h.loc.Get("user_not_found"))
	case errors.Is(err, gift.ErrInsufficientBalance):
		balance := int64(0)
		if user, err := h.db.GetUser(from.ID); err == nil {
			balance = user.Balance
		}
		h.sendText(from.ID, h.loc.Get("gift_insufficient", balance))
	default:
		h.log.Error("gift purchase failed", zap.Int64("user_id", from.ID), zap.Error(err))
	}
}

func (h *UserHandler) startVvod(userID int64) {
	h.sessions[userID] = &models.UserSession{State: models.StateAwaitingVvod}
	h.sendText(userID, h.loc.Get("vvod_start"))
}

func (h *UserHandler) handleVvodMessage(message *tgbotapi.Message) {
	userID := message.From.ID
	username := usernameOr(message.From.UserName, strconv.FormatInt(userID, 10))

	forward := tgbotapi.NewMessageToChannel(h.cfg.ApprovalChannel,
		h.loc.Get("vvod_forward", username, message.Text))
	h.send(forward)

	h.sendText(userID, h.loc.Get("vvod_sent"))
	delete(h.sessions, userID)
	h.SendMainMenu(userID)
}

// HandleCancel exits VVOD mode.
func (h *UserHandler) HandleCancel(update tgbotapi.Update) {
	userID := update.Message.From.ID
	if _, ok := h.sessions[userID]; !ok {
		return
	}
	delete(h.sessions, userID)
	h.sendText(userID, h.loc.Get("vvod_cancelled"))
	h.SendMainMenu(userID)
}

func usernameOr(username, fallback string) string {
	if username == "" {
		return fallback
	}
	return username
}

func nameOr(name string) string {
	if name == "" {
		return "No name"
	}
	return name
}
