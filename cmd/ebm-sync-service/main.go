package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/medilink/pharmacy_backend/config"
	"bitbucket.org/medilink/pharmacy_backend/ebm"
	"bitbucket.org/medilink/pharmacy_backend/models"
	"bitbucket.org/medilink/pharmacy_backend/realtime"
	"bitbucket.org/medilink/pharmacy_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("EBM_SYNC_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	// Identity headers set by the upstream gateway.
	r.Use(func(c *gin.Context) {
		ctx := c.Request.Context()
		if v := c.GetHeader("x-company-id"); v != "" {
			ctx = utils.SetCompanyIdInContext(ctx, v)
		}
		if v := c.GetHeader("x-user-id"); v != "" {
			if userId, err := strconv.Atoi(v); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if v := c.GetHeader("x-branch-id"); v != "" {
			if branchId, err := strconv.Atoi(v); err == nil {
				ctx = utils.SetBranchIdInContext(ctx, branchId)
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))
	r.Use(gin.Recovery())

	gateway := ebm.NewClient()

	// Services are wired after the DB/Redis connect; the closure handlers
	// below let routes register before that happens.
	var (
		codes   *ebm.CodeSyncService
		notices *ebm.NoticeService
		runner  *ebm.SyncRunner
	)
	initServices := func() {
		db := config.GetDB()
		store := ebm.NewStore(db)
		emitter := realtime.NewRedisEmitter(config.GetRedisDB())
		codes = ebm.NewCodeSyncService(store, gateway, logger, config.GetRedisLock())
		notices = ebm.NewNoticeService(store, gateway, emitter, logger)
		runner = ebm.NewSyncRunner(db, codes, notices, logger)
	}

	// API endpoints (EBM fiscalization)
	r.GET("/api/ebm/sync-status", ebm.SyncStatusHandler())
	r.POST("/api/ebm/force-sync", func(c *gin.Context) { ebm.ForceSyncHandler(codes)(c) })
	r.POST("/api/ebm/sync", ebm.TriggerSyncHandler())
	r.POST("/api/ebm/sync-notices", func(c *gin.Context) { ebm.SyncNoticesHandler(notices)(c) })
	r.POST("/api/ebm/initialize-device", ebm.InitializeDeviceHandler(gateway))
	r.POST("/api/ebm/items", ebm.RegisterItemHandler(gateway))
	r.POST("/api/ebm/products/:id/register", ebm.RegisterProductHandler(gateway))
	r.POST("/api/ebm/stock", ebm.SaveStockHandler(gateway))
	r.POST("/api/ebm/purchases", ebm.SavePurchaseHandler(gateway))
	r.POST("/api/ebm/sales", ebm.SaveSaleHandler(gateway))

	// Pub/Sub push endpoint for the sync worker.
	r.POST("/pubsub/ebm-sync", func(c *gin.Context) { ebm.PubSubPushHandler(runner, codes)(c) })

	// Cron target: sweep every active company.
	r.POST("/internal/ebm/run-scheduled-sync", func(c *gin.Context) {
		if err := runner.RunOnce(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	initServices()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
