package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gearscout/backend/internal/config"
	"github.com/gearscout/backend/internal/domain/rules"
	s3infra "github.com/gearscout/backend/internal/infra/s3"
	pgrepo "github.com/gearscout/backend/internal/repo/postgres"
	redrepo "github.com/gearscout/backend/internal/repo/redis"
	alertsvc "github.com/gearscout/backend/internal/services/alerts"
	authsvc "github.com/gearscout/backend/internal/services/auth"
	billingsvc "github.com/gearscout/backend/internal/services/billing"
	communitysvc "github.com/gearscout/backend/internal/services/community"
	creditsvc "github.com/gearscout/backend/internal/services/credits"
	entsvc "github.com/gearscout/backend/internal/services/entitlements"
	exportsvc "github.com/gearscout/backend/internal/services/exports"
	ratesvc "github.com/gearscout/backend/internal/services/rate"
	scansvc "github.com/gearscout/backend/internal/services/scans"
	watchsvc "github.com/gearscout/backend/internal/services/watchlist"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	balanceCache := redrepo.NewBalanceCacheRepo(redisClient, cfg.Cache.BalanceTTL)

	userRepo := pgrepo.NewUserRepo(pool)
	creditRepo := pgrepo.NewCreditRepo(pool)
	creditLogRepo := pgrepo.NewCreditLogRepo(pool)
	alertRepo := pgrepo.NewAlertRepo(pool)
	scanJobRepo := pgrepo.NewScanJobRepo(pool)
	watchlistRepo := pgrepo.NewWatchlistRepo(pool)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	contributionRepo := pgrepo.NewContributionRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, cfg.Auth.RefreshTTL)
	authService.AttachUsers(userStoreAdapter{repo: userRepo})

	creditService := creditsvc.NewService(creditsvc.Dependencies{
		Pool:   pool,
		States: creditRepo,
		Log:    creditLogRepo,
		Cache:  balanceCache,
	})
	entitlementService := entsvc.NewService(entsvc.Dependencies{
		Credits: creditService,
		Alerts:  alertRepo,
	})
	alertService := alertsvc.NewService(alertsvc.Dependencies{
		Pool:         pool,
		Store:        alertRepo,
		Ledger:       creditService,
		Entitlements: entitlementService,
	})
	scanLimiter := ratesvc.NewLimiter(rateRepo, ratesvc.Config{
		Window: cfg.Limits.ScanWindow,
		Max:    cfg.Limits.ScanMaxPerWindow,
	})
	scanService := scansvc.NewService(scansvc.Dependencies{
		Pool:     pool,
		Jobs:     scanJobRepo,
		Ledger:   creditService,
		Gate:     entitlementService,
		Throttle: scanLimiter,
	})
	watchlistService := watchsvc.NewService(watchsvc.Dependencies{
		Pool:   pool,
		Store:  watchlistRepo,
		Ledger: creditService,
		Gate:   entitlementService,
	})

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	objectStore := s3infra.NewObjectStore(s3Client, cfg.S3.Bucket)

	exportService := exportsvc.NewService(exportsvc.Dependencies{
		Ledger:    creditService,
		Gate:      entitlementService,
		Watchlist: watchlistService,
		Uploader:  objectStore,
	}, exportsvc.Config{
		URLTTL: cfg.Exports.URLTTL,
	})
	billingService := billingsvc.NewService(billingsvc.Dependencies{
		Pool:      pool,
		Purchases: purchaseRepo,
		Ledger:    creditService,
	})
	communityService := communitysvc.NewService(communitysvc.Dependencies{
		Pool:          pool,
		Contributions: contributionRepo,
		Ledger:        creditService,
	}, rules.RewardParams{
		Base:               cfg.Reward.Base,
		PriorityBonus:      cfg.Reward.PriorityBonus,
		FreshnessMaxBonus:  cfg.Reward.FreshnessMaxBonus,
		FreshnessDecayStep: cfg.Reward.FreshnessDecayStep,
		MaxPerContribution: cfg.Reward.MaxPerContribution,
	})

	RegisterRoutes(r, Dependencies{
		AuthService:        authService,
		CreditService:      creditService,
		EntitlementService: entitlementService,
		AlertService:       alertService,
		ScanService:        scanService,
		WatchlistService:   watchlistService,
		ExportService:      exportService,
		BillingService:     billingService,
		CommunityService:   communityService,
		Logger:             log,
		Config:             cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

type userStoreAdapter struct {
	repo *pgrepo.UserRepo
}

func (a userStoreAdapter) GetOrCreateByExternalID(ctx context.Context, externalID string) (authsvc.UserRecord, error) {
	rec, err := a.repo.GetOrCreateByExternalID(ctx, externalID)
	if err != nil {
		return authsvc.UserRecord{}, err
	}
	return authsvc.UserRecord{UserID: rec.ID}, nil
}
