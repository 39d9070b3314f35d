package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/config"
	"github.com/Joel009brave/ref-bot/localization"
	"github.com/Joel009brave/ref-bot/models"
)

// Telegram adapts the bot API to the notification and membership
// interfaces the core components consume. Sends are fire-and-forget:
// failures are logged and swallowed, they never reach the ledger.
type Telegram struct {
	bot *tgbotapi.BotAPI
	cfg *config.Config
	loc *localization.Catalog
	log *zap.Logger
}

func NewTelegram(bot *tgbotapi.BotAPI, cfg *config.Config, loc *localization.Catalog, log *zap.Logger) *Telegram {
	return &Telegram{bot: bot, cfg: cfg, loc: loc, log: log}
}

const timeLayout = "2006-01-02 15:04"

func (t *Telegram) windowHours() int64 {
	return int64(t.cfg.DecisionWindow.Hours())
}

func (t *Telegram) send(c tgbotapi.Chattable) {
	if _, err := t.bot.Send(c); err != nil {
		t.log.Warn("failed to send message", zap.Error(err))
	}
}

func (t *Telegram) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	t.send(msg)
}

// ReferralCredited implements referral.Notifier.
func (t *Telegram) ReferralCredited(referrerID, reward int64) {
	t.sendText(referrerID, t.loc.Get("new_referral", reward))
}

// ApprovalRequested posts the request to the approval channel with the
// decision buttons keyed by the request id.
func (t *Telegram) ApprovalRequested(req *models.GiftRequest) {
	text := t.loc.Get("approval_request",
		req.Username, req.UserID, req.Reward, req.BalCost,
		req.CreatedAt.Format(timeLayout), t.windowHours())

	msg := tgbotapi.NewMessageToChannel(t.cfg.ApprovalChannel, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.loc.Get("btn_approve"), callbackApprove(req.ID)),
			tgbotapi.NewInlineKeyboardButtonData(t.loc.Get("btn_reject"), callbackReject(req.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.loc.Get("btn_userinfo"), callbackUserInfo(req.UserID)),
		),
	)
	t.send(msg)
}

func (t *Telegram) PurchaseConfirmed(req *models.GiftRequest, newBalance int64) {
	t.sendText(req.UserID, t.loc.Get("gift_request_sent", req.Reward, newBalance, t.windowHours()))
}

func (t *Telegram) GiftApproved(req *models.GiftRequest) {
	t.sendText(req.UserID, t.loc.Get("gift_approved", req.Reward))
}

func (t *Telegram) GiftRejected(req *models.GiftRequest) {
	t.sendText(req.UserID, t.loc.Get("gift_rejected", req.BalCost))
}

func (t *Telegram) GiftAutoApproved(req *models.GiftRequest) {
	t.sendText(req.UserID, t.loc.Get("gift_auto_approved", req.Reward, t.windowHours()))
}

// DecisionRecorded rewrites the approval-channel post to its settled form.
func (t *Telegram) DecisionRecorded(messageID int, req *models.GiftRequest) {
	if messageID == 0 {
		return
	}
	key := "approval_approved_edit"
	if req.Status == models.GiftRejected {
		key = "approval_rejected_edit"
	}
	decidedAt := req.CreatedAt
	if req.DecidedAt != nil {
		decidedAt = *req.DecidedAt
	}
	text := t.loc.Get(key, req.Username, req.UserID, req.Reward, decidedAt.Format(timeLayout))

	edit := tgbotapi.EditMessageTextConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChannelUsername: t.cfg.ApprovalChannel,
			MessageID:       messageID,
		},
		Text:      text,
		ParseMode: tgbotapi.ModeMarkdown,
	}
	t.send(edit)
}

// IsMember implements referral.MembershipChecker against getChatMember.
func (t *Telegram) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	type result struct {
		member tgbotapi.ChatMember
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		member, err := t.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				SuperGroupUsername: channel,
				UserID:             userID,
			},
		})
		ch <- result{member, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return false, r.err
		}
		switch r.member.Status {
		case "member", "administrator", "creator":
			return true, nil
		}
		return false, nil
	}
}
