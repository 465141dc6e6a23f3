package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/perceptra/braingym/internal/ai"
	"github.com/perceptra/braingym/internal/config"
	"github.com/perceptra/braingym/internal/game"
	"github.com/perceptra/braingym/internal/history"
	"github.com/perceptra/braingym/internal/httpapi"
	"github.com/perceptra/braingym/internal/metrics"
	"github.com/perceptra/braingym/internal/ws"
)

const version = "v1.0.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`BrainGym - AI puzzle game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT             Port to listen on (default: 8080)
  DATABASE_URL     Postgres connection string (omit for in-memory history)
  JWT_SECRET       HS256 secret for API tokens (required)
  GEMINI_API_KEY   Google Gemini API key (required)
  GEMINI_BASE_URL  Custom Gemini API base URL (optional)
  IMAGE_MODEL      Image generation model (default: gemini-2.5-flash-image)
  VISION_MODEL     Vision/verification model (default: gemini-3-flash-preview)
  ROUND_SECONDS    Round duration in seconds (default: 75)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("BrainGym %s\n", version)
		return
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()

	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	if cfg.JWTSecret == "" {
		zerologlog.Fatal().Msg("JWT_SECRET is required")
	}

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// History store: Postgres when configured, memory otherwise
	var store history.Store
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			cancel()
			zerologlog.Fatal().Err(err).Msg("connect to postgres")
		}
		pg := history.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			cancel()
			zerologlog.Fatal().Err(err).Msg("migrate history schema")
		}
		cancel()
		defer pool.Close()
		store = pg
		zerologlog.Info().Msg("history: postgres")
	} else {
		store = history.NewMemoryStore()
		zerologlog.Warn().Msg("history: in-memory (rounds lost on restart)")
	}

	// Puzzle provider
	provider, err := ai.New(ai.Config{
		APIKey:      cfg.GeminiKey,
		BaseURL:     cfg.GeminiBaseURL,
		ImageModel:  cfg.ImageModel,
		VisionModel: cfg.VisionModel,
	})
	if err != nil {
		zerologlog.Fatal().Err(err).Msg("configure puzzle provider")
	}

	// Socket server + game manager
	sock := ws.New(cfg.JWTSecret)
	io := sock.Mount(r)
	defer io.Close()

	manager := game.NewManager(
		metrics.InstrumentProvider(provider),
		metrics.InstrumentRecorder(store),
		sock.Events,
		game.Settings{RoundSeconds: cfg.RoundSeconds, TickInterval: time.Second},
	)
	httpapi.New(manager, store, cfg.JWTSecret).Register(r)

	zerologlog.Info().Str("port", port).Str("version", version).Msg("braingym listening")
	if err := r.Run(":" + port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server exited")
	}
}
