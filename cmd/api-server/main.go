package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"animehub/internal/anime"
	"animehub/internal/auth"
	"animehub/internal/logger"
	"animehub/internal/notify"
	"animehub/internal/storage/sqlite"
	synchub "animehub/internal/sync"
	"animehub/internal/user"
	"animehub/pkg/database"
	"animehub/pkg/utils"
)

func main() {
	cfg := utils.LoadConfig()
	log := logger.New(cfg.Debug)

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// avoid the "trusted all proxies" warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// sync fan-out (TCP + WebSocket)
	hub := synchub.NewHub(log)
	router.GET("/ws", synchub.WSHandler(hub, log))
	tcpSrv := synchub.NewServer(cfg.SyncAddr, hub, log)

	// UDP catalog notifications
	registry := notify.NewRegistry()
	notifySrv := notify.NewServer(cfg.NotifyAddr, registry, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// services share one unit-of-work factory
	uow := sqlite.NewFactory(db, log, cfg.Debug)
	animeSvc := anime.NewService(uow)
	userSvc := user.NewService(uow)

	tokenSvc := auth.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}

	// Auth (public)
	authHandler := auth.NewHandler(userSvc, tokenSvc, auth.NewBlacklist())
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Catalog: reads are public, writes are admin-only
	animeHandler := anime.NewHandler(animeSvc, notifySrv)
	animeGroup := router.Group("/anime")
	adminGroup := router.Group("/anime")
	adminGroup.Use(auth.Middleware(tokenSvc), auth.RequireAdmin(userSvc))
	animeHandler.RegisterRoutes(animeGroup, adminGroup)
	animeHandler.RegisterReferenceRoutes(router.Group(""))

	// Profile and watchlist (protected)
	protected := router.Group("/users")
	protected.Use(auth.Middleware(tokenSvc))
	userHandler := user.NewHandler(userSvc, animeSvc, hub)
	userHandler.RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifySrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", cfg.Addr).Msg("http api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Stringer("signal", sig).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	if err := tcpSrv.Close(); err != nil {
		log.Error().Err(err).Msg("tcp shutdown error")
	}
	if err := notifySrv.Close(); err != nil {
		log.Error().Err(err).Msg("udp shutdown error")
	}

	wg.Wait()
	log.Info().Msg("servers stopped")
}
