package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gearscout/backend/internal/config"
	alertsvc "github.com/gearscout/backend/internal/services/alerts"
	authsvc "github.com/gearscout/backend/internal/services/auth"
	billingsvc "github.com/gearscout/backend/internal/services/billing"
	communitysvc "github.com/gearscout/backend/internal/services/community"
	creditsvc "github.com/gearscout/backend/internal/services/credits"
	entsvc "github.com/gearscout/backend/internal/services/entitlements"
	exportsvc "github.com/gearscout/backend/internal/services/exports"
	scansvc "github.com/gearscout/backend/internal/services/scans"
	watchsvc "github.com/gearscout/backend/internal/services/watchlist"
	"github.com/gearscout/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService        *authsvc.Service
	CreditService      *creditsvc.Service
	EntitlementService *entsvc.Service
	AlertService       *alertsvc.Service
	ScanService        *scansvc.Service
	WatchlistService   *watchsvc.Service
	ExportService      *exportsvc.Service
	BillingService     *billingsvc.Service
	CommunityService   *communitysvc.Service
	Logger             *zap.Logger
	Config             config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	creditsHandler := handlers.NewCreditsHandler(deps.CreditService)
	entitlementsHandler := handlers.NewEntitlementsHandler(deps.EntitlementService)
	alertsHandler := handlers.NewAlertsHandler(deps.AlertService)
	scansHandler := handlers.NewScansHandler(deps.ScanService)
	watchlistHandler := handlers.NewWatchlistHandler(deps.WatchlistService)
	exportsHandler := handlers.NewExportsHandler(deps.ExportService)
	billingHandler := handlers.NewBillingHandler(deps.BillingService)
	communityHandler := handlers.NewCommunityHandler(deps.CommunityService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.Get("/plans", entitlementsHandler.Plans)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
	})

	r.With(authMW).Get("/entitlements", entitlementsHandler.Get)

	r.Route("/credits", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/", creditsHandler.State)
		r.Post("/check", creditsHandler.Check)
		r.Get("/history", creditsHandler.History)
	})

	r.Route("/scans", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/", scansHandler.Create)
		r.Get("/{id}", scansHandler.Get)
	})

	r.Route("/watchlist", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/", watchlistHandler.Add)
		r.Get("/", watchlistHandler.List)
		r.Delete("/{id}", watchlistHandler.Delete)
	})

	r.Route("/alerts", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/", alertsHandler.Create)
		r.Get("/", alertsHandler.List)
		r.Post("/{id}/active", alertsHandler.SetActive)
		r.Put("/{id}", alertsHandler.Update)
		r.Delete("/{id}", alertsHandler.Delete)
	})

	r.With(authMW).Post("/exports/watchlist", exportsHandler.Watchlist)

	r.Route("/billing", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/subscribe", billingHandler.Subscribe)
		r.Post("/topup", billingHandler.Topup)
	})

	r.Route("/community", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/complete", communityHandler.Complete)
		r.Get("/contributions", communityHandler.History)
	})
}
