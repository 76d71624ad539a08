package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	jarvis "github.com/aniketverma/jarvis-portfolio"
	"github.com/aniketverma/jarvis-portfolio/internal/handlers"
	"github.com/aniketverma/jarvis-portfolio/internal/services"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const errLoggerKey = "err"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		fatal(slog.Default(), "Error getting user config dir", err)
	}
	appDir := filepath.Join(cfgDir, "jarvis-portfolio")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		fatal(slog.Default(), "Error creating config directory", err)
	}

	cfgFilePath := os.Getenv("JARVIS_CONFIG")
	if cfgFilePath == "" {
		cfgFilePath = filepath.Join(appDir, "config.yaml")
	}
	cfg, err := loadConfig(cfgFilePath)
	if err != nil {
		fatal(slog.Default(), "Error loading config", err)
	}

	level, err := cfg.logLevel()
	if err != nil {
		fatal(slog.Default(), "Error parsing log level", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	llm, err := cfg.LLM.llm(logger)
	if err != nil {
		fatal(logger, "Error creating llm", err)
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(appDir, "store.db")
	}
	boltDB, err := services.NewBoltDB(dbPath)
	if err != nil {
		fatal(logger, "Error opening store", err)
	}
	defer boltDB.Close()

	if cfg.SeedFile != "" {
		seed, err := services.LoadSeed(cfg.SeedFile)
		if err != nil {
			fatal(logger, "Error loading seed file", err)
		}
		if err := boltDB.Seed(context.Background(), seed); err != nil {
			fatal(logger, "Error seeding store", err)
		}
		logger.Info("Seeded content store", slog.String("file", cfg.SeedFile), slog.Int("posts", len(seed.Posts)))
	}

	queries, err := boltDB.ServiceQueries(context.Background())
	if err != nil {
		fatal(logger, "Error reading service queries", err)
	}
	logger.Info("Content store ready", slog.String("path", dbPath), slog.Int("serviceQueries", len(queries)))
	for _, q := range queries {
		logger.Debug("Service query",
			slog.String("id", q.ID),
			slog.String("email", q.Email),
			slog.String("subject", q.Subject),
			slog.Time("created", q.CreatedAt))
	}

	m, err := handlers.NewMain(llm, boltDB, logger,
		handlers.WithSystemPrompt(cfg.SystemPrompt),
		handlers.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	if err != nil {
		fatal(logger, "Error creating handlers", err)
	}

	// Serve static files
	staticFS, err := fs.Sub(jarvis.StaticFS, "static")
	if err != nil {
		fatal(logger, "Error opening static files", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/{$}", m.HandleHome)
	mux.HandleFunc("/blog/{$}", m.HandleBlog)
	mux.HandleFunc("/blog/{slug}/", m.HandlePost)
	mux.HandleFunc("/events", m.HandleEvents)
	mux.HandleFunc("/ws/chat/", m.HandleChatSocket)

	mux.HandleFunc("/api/personal-data/", m.HandlePersonalData)
	mux.HandleFunc("/api/skills/", m.HandleSkills)
	mux.HandleFunc("/api/experience/", m.HandleExperience)
	mux.HandleFunc("/api/projects/", m.HandleProjects)
	mux.HandleFunc("/api/achievements/", m.HandleAchievements)
	mux.HandleFunc("/api/blog/posts/{$}", m.HandleBlogPosts)
	mux.HandleFunc("/api/blog/posts/{slug}/", m.HandleBlogPost)
	mux.HandleFunc("/api/blog/categories/", m.HandleBlogCategories)
	mux.HandleFunc("/api/service-query/", m.HandleServiceQuery)

	port := cfg.Port
	if port == "" {
		port = "8000"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown handlers", slog.String(errLoggerKey, err.Error()))
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", slog.String(errLoggerKey, err.Error()))
		}

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String(errLoggerKey, err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String(errLoggerKey, err.Error()))
			}
		}
	}
}

func loadConfig(path string) (config, error) {
	cfgFile, err := os.Open(path)
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := config{}
	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.String(errLoggerKey, err.Error()))
	os.Exit(1)
}
