package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-qr-hub/internal/auth"
	"pdf-qr-hub/internal/database"
	"pdf-qr-hub/internal/handler"
	"pdf-qr-hub/internal/infrastructure/config"
	"pdf-qr-hub/internal/infrastructure/di"
	"pdf-qr-hub/internal/logger"
	"pdf-qr-hub/internal/server"
)

func main() {
	cfg := config.Load()

	if err := database.InitDatabase(cfg.Database.Database); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDatabase()
	defer db.Close()

	if err := logger.InitLogger(db.GetDB()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.GetLogger().Close()

	if err := os.MkdirAll(cfg.PDFDir(), 0755); err != nil {
		log.Fatalf("Failed to create storage directory: %v", err)
	}
	if err := os.MkdirAll(cfg.QRDir(), 0755); err != nil {
		log.Fatalf("Failed to create qr directory: %v", err)
	}

	container := di.New(db.GetDB())
	authn := auth.NewAuthenticator(cfg, auth.NewMemorySessionStore())

	srv := server.New(cfg, authn)
	handler.RegisterRoutes(srv.Router, cfg, container, authn)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.GetLogger().InfoCtx(logger.EventSystemStart,
			fmt.Sprintf("Server starting on %s", addr),
			map[string]interface{}{"version": cfg.Application.Version}, "", nil, "system")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
