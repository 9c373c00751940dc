package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/party-queue-system/internal/auth"
	"github.com/party-queue-system/internal/config"
	"github.com/party-queue-system/internal/session"
	"github.com/party-queue-system/pkg/events"
	"github.com/party-queue-system/pkg/jwt"
	"github.com/party-queue-system/pkg/logger"
)

const identityTTL = 24 * time.Hour

var (
	servePort   string
	frontendDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for browser clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != "" {
			cfg.Port = servePort
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default $PORT or 8080)")
	serveCmd.Flags().StringVar(&frontendDir, "frontend", "frontend/dist", "directory with the built web client")
	rootCmd.AddCommand(serveCmd)
}

func newPublisher(cfg *config.Config, groupID string) (events.Publisher, *events.KafkaClient) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Nop{}, nil
	}
	client := events.NewKafkaClient(cfg.KafkaBrokers, cfg.KafkaTopic, groupID)
	return client, client
}

func newRouter(cfg *config.Config, svc *session.Service) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens := jwt.NewManager(cfg.JWTSecret, identityTTL)
	issuer := auth.NewIssuer(tokens, cfg.CookieSecure)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(auth.IdentityMiddleware(tokens))
	auth.NewHandler(issuer).RegisterRoutes(v1)
	session.NewHandler(svc, issuer).RegisterRoutes(v1)

	// Serve the web client and fall back to index.html for client-side routes.
	router.NoRoute(func(c *gin.Context) {
		filePath := filepath.Join(frontendDir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
			c.File(filePath)
			return
		}
		c.File(filepath.Join(frontendDir, "index.html"))
	})

	return router
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, kafkaClient := newPublisher(cfg, "")
	if kafkaClient != nil {
		defer kafkaClient.Close()
	}

	svc := session.NewService(st, session.WithEvents(publisher))
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(cfg, svc),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			logger.String("port", cfg.Port),
			logger.String("store", cfg.StoreDriver),
			logger.Bool("events", kafkaClient != nil))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
