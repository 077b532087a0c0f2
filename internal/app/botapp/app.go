package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gearscout/backend/internal/config"
	tginfra "github.com/gearscout/backend/internal/infra/telegram"
	"github.com/gearscout/backend/internal/jobs/expirywarn"
	"github.com/gearscout/backend/internal/jobs/resetcycle"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
	creditsvc "github.com/gearscout/backend/internal/services/credits"
)

const (
	linkUsageInstruction = "Send /link <account id> to receive credit expiry reminders here."
	linkedInstruction    = "Linked. You will get a heads-up before unused credits expire."
)

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	bot      *tginfra.Bot
	userRepo *pgrepo.UserRepo
	resetJob *resetcycle.Job
	warnJob  *expirywarn.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	userRepo := pgrepo.NewUserRepo(pool)
	creditRepo := pgrepo.NewCreditRepo(pool)
	creditLogRepo := pgrepo.NewCreditLogRepo(pool)
	creditService := creditsvc.NewService(creditsvc.Dependencies{
		Pool:   pool,
		States: creditRepo,
		Log:    creditLogRepo,
	})

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, expiry notifications disabled")
	}

	resetJob := resetcycle.New(creditRepo, creditService, cfg.Worker.BatchSize, logger)

	var warnJob *expirywarn.Job
	if bot != nil {
		warnJob = expirywarn.New(creditRepo, userRepo, bot, cfg.Worker.BatchSize, logger)
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		bot:      bot,
		userRepo: userRepo,
		resetJob: resetJob,
		warnJob:  warnJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 3)
	go func() {
		errCh <- a.runJobLoop(ctx, a.cfg.Worker.ResetInterval, 15*time.Minute, a.resetJob.Run)
	}()
	if a.warnJob != nil {
		go func() {
			errCh <- a.runJobLoop(ctx, a.cfg.Worker.WarnInterval, 6*time.Hour, a.warnJob.Run)
		}()
	}

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnCommand: a.handleCommand,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}

func (a *App) runJobLoop(ctx context.Context, interval, fallback time.Duration, run func(context.Context) error) error {
	if interval <= 0 {
		interval = fallback
	}

	if err := run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start", "help":
		return a.bot.SendText(ctx, update.ChatID, linkUsageInstruction)
	case "link":
		return a.handleLink(ctx, update)
	default:
		return nil
	}
}

func (a *App) handleLink(ctx context.Context, update tginfra.CommandUpdate) error {
	externalID := strings.TrimSpace(update.Args)
	if externalID == "" {
		return a.bot.SendText(ctx, update.ChatID, linkUsageInstruction)
	}

	user, err := a.userRepo.GetOrCreateByExternalID(ctx, externalID)
	if err != nil {
		a.logger.Warn("failed to resolve account for chat link", zap.Error(err))
		return a.bot.SendText(ctx, update.ChatID, "Could not link that account id, try again later.")
	}

	if err := a.userRepo.SetNotifyChatID(ctx, user.ID, update.ChatID); err != nil {
		a.logger.Warn("failed to store notify chat", zap.Error(err), zap.Int64("user_id", user.ID))
		return a.bot.SendText(ctx, update.ChatID, "Could not link that account id, try again later.")
	}

	return a.bot.SendText(ctx, update.ChatID, linkedInstruction)
}
