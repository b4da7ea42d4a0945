package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/attendant-coordinator/internal/application"
	"github.com/example/attendant-coordinator/internal/config"
	httptransport "github.com/example/attendant-coordinator/internal/http"
	"github.com/example/attendant-coordinator/internal/mail"
	"github.com/example/attendant-coordinator/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	userRepo := newUserRepositoryAdapter(sqlite.NewUserRepository(pool))
	eventRepo := newEventRepositoryAdapter(sqlite.NewEventRepository(pool))
	attendantRepo := newAttendantRepositoryAdapter(sqlite.NewAttendantRepository(pool))
	assignmentRepo := newAssignmentRepositoryAdapter(sqlite.NewAssignmentRepository(pool))
	countRepo := newCountRepositoryAdapter(sqlite.NewCountRepository(pool))
	sessionStore := newSessionStoreAdapter(sqlite.NewSessionRepository(pool))
	credentialStore := newCredentialStoreAdapter(sqlite.NewUserRepository(pool))

	var mailer application.InvitationMailer
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.BaseURL, logger)
	} else {
		mailer = mail.NewLogSender(logger)
	}

	eventService := application.NewEventServiceWithLogger(eventRepo, idGenerator, now, logger)
	attendantService := application.NewAttendantServiceWithLogger(attendantRepo, idGenerator, now, logger)
	assignmentService := application.NewAssignmentServiceWithLogger(assignmentRepo, eventService, attendantService, idGenerator, now, logger)
	countService := application.NewCountServiceWithLogger(countRepo, eventService, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(userRepo, mailer, idGenerator, tokenGenerator, now, cfg.InvitationTTL, logger)
	authService := application.NewAuthServiceWithLogger(credentialStore, sessionStore, idGenerator, tokenGenerator, now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:        httptransport.NewAuthHandler(authService, logger),
		Users:       httptransport.NewUserHandler(userService, logger),
		Events:      httptransport.NewEventHandler(eventService, assignmentService, logger),
		Attendants:  httptransport.NewAttendantHandler(attendantService, logger),
		Assignments: httptransport.NewAssignmentHandler(assignmentService, logger),
		Counts:      httptransport.NewCountHandler(countService, logger),
		Sessions:    authService,
		Logger:      logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go pruneSessionsLoop(ctx, authService, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("coordinator API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func pruneSessionsLoop(ctx context.Context, auth *application.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := auth.PruneSessions(ctx); err != nil {
				logger.Error("failed to prune sessions", "error", err)
			}
		}
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
