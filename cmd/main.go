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

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ngenohkevin/prize_admin/internal/config"
	"github.com/ngenohkevin/prize_admin/internal/database"
	"github.com/ngenohkevin/prize_admin/internal/handlers"
	custommiddleware "github.com/ngenohkevin/prize_admin/internal/middleware"
	"github.com/ngenohkevin/prize_admin/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL, cfg.RunMigrations)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up thumbnail storage: %v", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.CookieSecure

	h := handlers.New(db, sessionManager, uploader, handlers.Credentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.MethodOverride)
	r.Use(sessionManager.LoadAndSave)
	r.Use(custommiddleware.Auth(sessionManager))

	r.Handle("/static/*", http.StripPrefix("/static", http.FileServer(http.Dir("./web/static"))))
	if cfg.UploadBackend == "local" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)

	r.Get("/", h.Home)

	r.Route("/prizes", func(r chi.Router) {
		r.Get("/", h.ListPrizes)
		r.Get("/new", h.NewPrizeForm)
		r.Post("/", h.CreatePrize)
		r.Get("/{id}", h.GetPrize)
		r.Get("/{id}/edit", h.EditPrizeForm)
		r.Put("/{id}", h.UpdatePrize)
		r.Delete("/{id}", h.DeletePrize)
	})

	r.Route("/partners", func(r chi.Router) {
		r.Get("/", h.ListPartners)
		r.Post("/", h.CreatePartner)
		r.Put("/{id}/approval", h.SetPartnerApproval)
		r.Delete("/{id}", h.DeletePartner)
	})

	r.Get("/countdown", h.Countdown)
	r.Get("/countdown/ws", h.CountdownStream)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout, countdown websockets are long-lived
		IdleTimeout: 120 * time.Second,
	}

	srv.RegisterOnShutdown(h.Close)

	go func() {
		fmt.Printf("Server starting on port %s...\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Error shutting down server: %v", err)
	}

	fmt.Println("Server gracefully stopped")
}

func newUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, error) {
	if cfg.UploadBackend == "s3" {
		return storage.NewS3Uploader(ctx, cfg.S3Bucket, cfg.S3PublicURL)
	}
	return storage.NewLocalUploader(cfg.UploadDir, "/uploads")
}
