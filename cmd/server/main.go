package main

import (
	"context"
	"fmt"
	"net/http"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/config"
	"github.com/formalis/backoffice/internal/database"
	"github.com/formalis/backoffice/internal/notification"
	"github.com/formalis/backoffice/internal/realtime"
	postgresrepo "github.com/formalis/backoffice/internal/repository/postgres"
	"github.com/formalis/backoffice/internal/service"
	"github.com/formalis/backoffice/internal/transport/http/handlers"
	"github.com/formalis/backoffice/internal/transport/http/middleware"
	"github.com/formalis/backoffice/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("database connect", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Repositories
	convRepo := postgresrepo.NewConversationRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	adminRepo := postgresrepo.NewAdminRepo(pool)

	// Realtime change feed
	broker := realtime.NewBroker(logger)
	go broker.Run()

	// Services
	convService := service.NewConversationService(convRepo, messageRepo, logger)
	messageService := service.NewMessageService(messageRepo, convRepo, logger)
	messageService.SetNotifier(broker)
	readTracker := service.NewReadTracker(messageRepo, logger)

	// Trainer notification side channel
	if cfg.SendgridKey != "" {
		messageService.SetTrainerNotifier(notification.NewSendgridNotifier(
			cfg.SendgridKey, cfg.NotifyFromName, cfg.NotifyFrom,
			func(ctx context.Context, trainerID string) (*sgmail.Email, error) {
				var name, email string
				err := pool.QueryRow(ctx,
					`SELECT display_name, email FROM users WHERE id = $1`, trainerID,
				).Scan(&name, &email)
				if err != nil {
					return nil, err
				}
				return sgmail.NewEmail(name, email), nil
			},
		))
	} else {
		messageService.SetTrainerNotifier(notification.NewConsoleNotifier(logger))
	}

	// Handlers
	convHandler := handlers.NewConversationHandler(convService, readTracker, logger)
	messageHandler := handlers.NewMessageHandler(messageService, logger)
	roleHandler := handlers.NewRoleHandler(adminRepo, logger)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})

	// Protected - Conversations
	mux.Handle("GET /api/v1/sessions/{id}/conversations", auth(http.HandlerFunc(convHandler.List)))
	mux.Handle("DELETE /api/v1/conversations/{id}", auth(http.HandlerFunc(convHandler.Delete)))
	mux.Handle("POST /api/v1/conversations/{id}/read", auth(http.HandlerFunc(convHandler.MarkRead)))

	// Protected - Messages
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(messageHandler.List)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(messageHandler.Send)))
	mux.Handle("PATCH /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Edit)))
	mux.Handle("DELETE /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Delete)))

	// Sender badges
	mux.Handle("GET /api/v1/users/{id}/role", auth(http.HandlerFunc(roleHandler.Get)))

	// Realtime change feed
	mux.HandleFunc("GET /ws", ws.ServeWS(broker, cfg.JWTSecret))

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	logger.Info("starting server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, middleware.CORS(mux)); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
