package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/config"
	"github.com/Joel009brave/ref-bot/database"
	"github.com/Joel009brave/ref-bot/gift"
	"github.com/Joel009brave/ref-bot/handlers"
	"github.com/Joel009brave/ref-bot/keepalive"
	"github.com/Joel009brave/ref-bot/localization"
	"github.com/Joel009brave/ref-bot/referral"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	loc := localization.New()

	db, err := database.New(cfg.DatabaseFile, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("failed to create bot", zap.Error(err))
	}
	logger.Info("authorized", zap.String("account", bot.Self.UserName))

	tg := handlers.NewTelegram(bot, cfg, loc, logger)
	engine := referral.NewEngine(db, tg, tg, cfg.TargetChannel, cfg.ReferralReward, logger)
	gifts := gift.NewWorkflow(db, tg, cfg.GiftPrices, logger)
	sweeper := gift.NewSweeper(db, tg, cfg.DecisionWindow, cfg.SweepInterval, logger)

	userHandler := handlers.NewUserHandler(bot, db, engine, gifts, cfg, loc, logger)
	adminHandler := handlers.NewAdminHandler(bot, db, gifts, cfg, loc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go keepalive.New(cfg.KeepAliveAddr, logger).Run(ctx)
	go sweeper.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	startup := tgbotapi.NewMessage(cfg.AdminID, loc.Get("startup_admin"))
	if _, err := bot.Send(startup); err != nil {
		logger.Warn("failed to notify admin on startup", zap.Error(err))
	}

	logger.Info("bot started, waiting for updates")

	// Updates are handled one at a time; the per-user session maps rely
	// on it.
	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			logger.Info("shutting down")
			return
		case update := <-updates:
			handleUpdate(ctx, update, userHandler, adminHandler)
		}
	}
}

func handleUpdate(ctx context.Context, update tgbotapi.Update, userHandler *handlers.UserHandler, adminHandler *handlers.AdminHandler) {
	switch {
	case update.Message != nil:
		if update.Message.From == nil {
			return
		}
		if update.Message.IsCommand() {
			switch update.Message.Command() {
			case "start":
				// Registration goes through the referral engine; do not
				// pre-register the user or the credit decision is lost.
				userHandler.HandleStart(ctx, update)
			case "gift":
				userHandler.EnsureUser(update.Message)
				userHandler.HandleGiftPurchase(update)
			case "admin":
				userHandler.EnsureUser(update.Message)
				adminHandler.HandleCommand(update)
			case "cancel":
				userHandler.HandleCancel(update)
			default:
				userHandler.EnsureUser(update.Message)
				userHandler.HandleText(update)
			}
			return
		}
		userHandler.EnsureUser(update.Message)
		userHandler.HandleText(update)
	case update.CallbackQuery != nil:
		adminHandler.HandleCallback(update.CallbackQuery)
	}
}
