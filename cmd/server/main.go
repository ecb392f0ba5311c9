package main

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tingxie/internal/audio"
	"tingxie/internal/config"
	"tingxie/internal/database"
	"tingxie/internal/drill"
	"tingxie/internal/handlers"
	"tingxie/internal/security"
	"tingxie/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if cfg.SessionSecret == "change-me-in-production" {
		log.Println("Warning: SESSION_SECRET is not set; using the built-in development secret")
	}

	// Serve the startup page while the rest initializes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /startup", handlers.ShowStartupStatus)
	mux.HandleFunc("GET /startup/status", handlers.StartupStatusJSON)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.Logging(handlers.RequireReady(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	handlers.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)
	handlers.CompleteStep(handlers.StepDatabase)

	// Run migrations
	handlers.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")
	handlers.CompleteStep(handlers.StepMigrations)

	// Load templates
	handlers.SetCurrentStep(handlers.StepTemplates)
	templates, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	log.Println("Templates loaded successfully")
	handlers.CompleteStep(handlers.StepTemplates)

	// Initialize services
	handlers.SetCurrentStep(handlers.StepServices)
	ttsService := audio.NewTTSService(cfg.AudioPath, cfg.TTSLanguage, cfg.TTSSpeed)
	effects := audio.NewEffectLibrary(cfg.AudioPath, cfg.EffectCorrectURL, cfg.EffectWrongURL)
	listService := service.NewListService(db, ttsService, cfg.DefaultList, cfg.TTSLanguage)
	drillService := service.NewDrillService(listService, drill.WithLogger(log.Default()))

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Printf("Warning: Failed to initialize email service: %v", err)
	}

	tokens := security.NewSessionTokens(cfg.SessionSecret, cfg.SessionDuration)
	csrf := security.NewCSRFGenerator(cfg.SessionSecret)
	limiter := security.NewRateLimiter(20, time.Minute)
	defer limiter.Stop()
	proxies, err := security.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Failed to parse TRUSTED_PROXIES: %v", err)
	}
	handlers.CompleteStep(handlers.StepServices)

	// Seed the built-in list
	handlers.SetCurrentStep(handlers.StepSeed)
	if err := listService.SeedDefaultLists(ctx); err != nil {
		log.Printf("Warning: Failed to seed default lists: %v", err)
	}
	handlers.CompleteStep(handlers.StepSeed)

	// Generate any missing audio files
	handlers.SetCurrentStep(handlers.StepAudio)
	prepareAudio(ctx, listService, effects)
	handlers.CompleteStep(handlers.StepAudio)

	// Initialize handlers
	middleware := handlers.NewMiddleware(drillService, tokens, csrf, limiter, proxies, cfg.AdminPasswordHash)
	drillHandler := handlers.NewDrillHandler(drillService, listService, emailService, ttsService, effects, tokens, middleware, templates, cfg.ReportEmail)
	adminHandler := handlers.NewAdminHandler(listService)

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))

	// Drill routes
	mux.HandleFunc("GET /", drillHandler.Home)
	mux.HandleFunc("POST /drill/start", middleware.RateLimit(drillHandler.StartDrill))
	mux.HandleFunc("GET /drill", middleware.RequireDrillSession(drillHandler.ShowDrill))
	mux.HandleFunc("POST /drill/submit", middleware.RequireDrillSession(middleware.CSRFProtect(drillHandler.SubmitAnswer)))
	mux.HandleFunc("POST /drill/next", middleware.RequireDrillSession(middleware.CSRFProtect(drillHandler.Next)))
	mux.HandleFunc("POST /drill/skip", middleware.RequireDrillSession(middleware.CSRFProtect(drillHandler.Skip)))
	mux.HandleFunc("GET /drill/stats", middleware.RequireDrillSession(drillHandler.Stats))
	mux.HandleFunc("GET /drill/audio", middleware.RequireDrillSession(drillHandler.Audio))
	mux.HandleFunc("GET /drill/effects/{kind}", drillHandler.Effect)
	mux.HandleFunc("POST /drill/report", middleware.RequireDrillSession(middleware.CSRFProtect(middleware.RateLimit(drillHandler.Report))))
	mux.HandleFunc("POST /drill/end", middleware.RequireDrillSession(middleware.CSRFProtect(drillHandler.EndDrill)))

	// Admin routes
	mux.HandleFunc("GET /admin/lists", middleware.RateLimit(middleware.RequireAdmin(adminHandler.ListLists)))
	mux.HandleFunc("POST /admin/lists/import", middleware.RateLimit(middleware.RequireAdmin(adminHandler.ImportList)))
	mux.HandleFunc("GET /admin/lists/{name}/export", middleware.RateLimit(middleware.RequireAdmin(adminHandler.ExportList)))
	mux.HandleFunc("POST /admin/lists/{id}/delete", middleware.RateLimit(middleware.RequireAdmin(adminHandler.DeleteList)))
	mux.HandleFunc("POST /admin/lists/default", middleware.RateLimit(middleware.RequireAdmin(adminHandler.SetDefaultList)))
	mux.HandleFunc("POST /admin/audio/regenerate", middleware.RateLimit(middleware.RequireAdmin(adminHandler.RegenerateAudio)))

	// Start background session cleanup
	go cleanupExpiredSessions(ctx, drillService, cfg.SessionDuration)

	handlers.MarkReady()
	log.Println("Server ready")

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// prepareAudio fills in missing word clips, drops orphaned ones and fetches
// the feedback effects. Failures only degrade audio, so they are logged.
func prepareAudio(ctx context.Context, listService *service.ListService, effects *audio.EffectLibrary) {
	generated, failed, err := listService.GenerateMissingAudio(ctx)
	if err != nil {
		log.Printf("Warning: Failed to generate missing audio files: %v", err)
	} else if generated > 0 || failed > 0 {
		log.Printf("Audio generation: %d generated, %d failed", generated, failed)
	}

	if removed, err := listService.CleanupOrphanedAudioFiles(); err != nil {
		log.Printf("Warning: Failed to cleanup orphaned audio files: %v", err)
	} else if removed > 0 {
		log.Printf("Removed %d orphaned audio files", removed)
	}

	if err := effects.Ensure(ctx); err != nil {
		log.Printf("Warning: Failed to download sound effects: %v", err)
	}
}

// loadTemplates loads all template files
func loadTemplates(templatesPath string) (*template.Template, error) {
	files, err := filepath.Glob(filepath.Join(templatesPath, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob templates: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found in %s", templatesPath)
	}

	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"percent": func(ratio float64) string {
			return drill.FormatAccuracy(ratio) + "%"
		},
		"formatTime": func(t time.Time) string {
			return t.Format(time.DateTime)
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return tmpl, nil
}

// cleanupExpiredSessions periodically drops drill sessions idle for longer
// than maxIdle
func cleanupExpiredSessions(ctx context.Context, drillService *service.DrillService, maxIdle time.Duration) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := drillService.CleanupExpired(maxIdle); removed > 0 {
				log.Printf("Expired %d idle drill sessions", removed)
			}
		}
	}
}
