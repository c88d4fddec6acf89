package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frankieli/forum_product/internal/config"
	ldBackend "github.com/frankieli/forum_product/internal/modules/luckydraw/adapter/backend"
	ldHttp "github.com/frankieli/forum_product/internal/modules/luckydraw/adapter/http"
	ldDomain "github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
	ldDB "github.com/frankieli/forum_product/internal/modules/luckydraw/repository/db"
	ldMemory "github.com/frankieli/forum_product/internal/modules/luckydraw/repository/memory"
	ldRedis "github.com/frankieli/forum_product/internal/modules/luckydraw/repository/redis"
	ldUseCase "github.com/frankieli/forum_product/internal/modules/luckydraw/usecase"
	"github.com/frankieli/forum_product/internal/modules/luckydraw/ws"
	"github.com/frankieli/forum_product/pkg/logger"
)

func main() {
	background := flag.Bool("d", false, "Run in background mode (disable console logging)")
	flag.Parse()

	logger.InitWithFile("logs/luckydraw/service.log", "info", "json", !*background)

	fmt.Println("🎰 Starting Lucky Draw Service... Logs are being written to logs/luckydraw/service.log (rotating)")
	logger.InfoGlobal().Msg("🎰 Starting Lucky Draw Service...")

	// 1. Load Config
	cfg := config.LoadLuckyDrawConfig()

	// 2. Infrastructure
	var orderRepo ldDomain.DrawOrderRepository
	if cfg.RepoType == "db" {
		db := openDatabase(cfg)
		repo, err := ldDB.NewDrawOrderRepository(db)
		if err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to migrate draw_orders")
		}
		orderRepo = repo
		logger.InfoGlobal().Msg("✅ Draw order archive: DB")
	} else {
		orderRepo = ldMemory.NewDrawOrderRepository()
		logger.InfoGlobal().Msg("✅ Draw order archive: Memory")
	}

	var catalogCache ldDomain.CatalogCache
	if cfg.Settings.CacheCatalog {
		rdb := redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		})
		defer rdb.Close()
		catalogCache = ldRedis.NewCatalogCache(rdb, cfg.Settings.CatalogTTL)
		logger.InfoGlobal().Msg("✅ Catalog cache: Redis")
	}

	// 3. Modules
	wsManager := ws.NewManager()
	go wsManager.Run()
	broadcaster := ws.NewSnapshotBroadcaster(wsManager)

	backendClient := ldBackend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	drawUC := ldUseCase.NewLuckyDrawUseCase(
		backendClient, // catalog
		backendClient, // draw
		backendClient, // settlement
		backendClient, // orders
		orderRepo,
		catalogCache,
		broadcaster,
		clockwork.NewRealClock(),
		cfg.Settings.WindowDuration,
		cfg.Settings.TickInterval,
	)
	logger.InfoGlobal().
		Dur("window", cfg.Settings.WindowDuration).
		Dur("tick", cfg.Settings.TickInterval).
		Str("backend", cfg.Backend.BaseURL).
		Msg("✅ Lucky draw module initialized")

	// 4. HTTP Server
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware())

	handler := ldHttp.NewHandler(drawUC, wsManager, cfg.JWT.Secret)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	logger.InfoGlobal().
		Str("port", cfg.Server.Port).
		Str("api_url", fmt.Sprintf("http://localhost:%s/api/luckydraw", cfg.Server.Port)).
		Str("ws_url", fmt.Sprintf("ws://localhost:%s/ws?token=YOUR_TOKEN", cfg.Server.Port)).
		Msg("🚀 Lucky Draw Service running")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalGlobal().Err(err).Msg("HTTP server failed")
		}
	}()

	// 5. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoGlobal().Msg("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("HTTP server forced to shutdown")
	}

	drawUC.Stop()

	logger.InfoGlobal().Msg("🔌 Closing all WebSocket connections...")
	wsManager.Shutdown()

	logger.InfoGlobal().Msg("👋 Server exited properly")
}

func openDatabase(cfg *config.LuckyDrawConfig) *gorm.DB {
	gormLog := logger.NewGormLogger()

	var (
		db  *gorm.DB
		err error
	)

	if cfg.Database.Host != "" {
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog.LogMode(gormlogger.Warn)})
	} else {
		db, err = gorm.Open(sqlite.Open("luckydraw.db"), &gorm.Config{Logger: gormLog.LogMode(gormlogger.Warn)})
	}
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to get database instance")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to ping database")
	}
	logger.InfoGlobal().Msg("✅ Database connected")

	return db
}
