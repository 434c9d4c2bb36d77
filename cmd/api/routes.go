package main

import (
	"context"
	"database/sql"
	"fmt"

	"pharmline/internal/auth"
	"pharmline/internal/callqueue"
	"pharmline/internal/chatlog"
	"pharmline/internal/config"
	"pharmline/internal/httpapi"
	"pharmline/internal/presence"
	"pharmline/internal/telephony"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal
// modules.
func registerRoutes(ctx context.Context, r *gin.Engine, cfg config.Config, db *sql.DB, rdb *redis.Client) error {
	resolver, err := auth.NewResolver(cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}

	callStore := callqueue.NewPostgresStore(db)
	if err := callStore.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("call store schema: %w", err)
	}
	chatRepo := chatlog.NewPostgresRepo(db)
	if err := chatRepo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("chat store schema: %w", err)
	}

	rebalancer := callqueue.NewRebalancer(callStore)
	reconciler := callqueue.NewReconciler(callStore, rebalancer)

	grants := telephony.NewGrantService(cfg.Twilio)
	var minter callqueue.GrantMinter
	if grants.Configured() {
		minter = grants
	}
	admission := callqueue.NewAdmissionService(callStore, rebalancer, minter, cfg.Twilio.PharmacistIdentity)

	presenceStore := presence.NewRedisStore(rdb, cfg.Queue.PresenceWindow)
	presenceSvc := presence.NewService(presenceStore, cfg.Queue.PresenceWindow, cfg.Queue.WaitMinutesPerCall)
	presenceSvc.ActiveCount = func(ctx context.Context) (int, error) {
		active, err := callStore.ListActive(ctx)
		if err != nil {
			return 0, err
		}
		return len(active), nil
	}

	h := httpapi.Handlers{
		Admission:  admission,
		Reconciler: reconciler,
		Calls:      callStore,
		Chat:       chatRepo,
		Presence:   presenceSvc,
		PresenceDB: presenceStore,
	}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhook (public). Trust is the TwiML app binding plus URL
	// secrecy; validate the Twilio signature here before exposing publicly.
	webhook := telephony.VoiceWebhookHandler{
		Router:     telephony.NewRouter(cfg.Twilio.PharmacistIdentity),
		Configured: cfg.Twilio.Configured(),
		Reconciler: reconciler,
	}
	r.POST("/webhooks/twilio/voice", webhook.HandleVoice)

	// user-facing call API
	v1 := r.Group("/v1")
	v1.Use(auth.RequireUser(resolver))
	{
		v1.POST("/call/token", h.CallToken)
		v1.GET("/call/:id", h.GetCall)
		v1.POST("/call/:id/status", h.UpdateCallStatus)
	}

	// staff console (browser client; basic auth)
	console := r.Group("/console")
	console.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	console.Use(auth.RequireConsole(cfg.Console))
	{
		console.GET("/calls", h.ConsoleListCalls)
		console.POST("/calls/:id/status", h.ConsoleUpdateStatus)
		console.POST("/presence/heartbeat", h.ConsoleHeartbeat)
		console.GET("/presence", h.ConsolePresence)
		console.GET("/sessions", h.ConsoleListSessions)
		console.GET("/sessions/:id/messages", h.ConsoleListMessages)
		console.POST("/admin/reset", h.AdminReset)
	}

	return nil
}
