package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/auth"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/config"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/db"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/logger"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/remote"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/render"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "./config.yaml"), "path to the configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		// Not an error: production deployments configure via real env vars.
		l := logger.New("info")
		l.Debug().Msg("No .env file loaded")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		l := logger.New("error")
		l.Fatal().Err(err).Msg("Error loading configuration")
	}
	cfg := config.AppConfig

	log := logger.New(cfg.Logging.Level)
	config.SetLogger(log)
	db.SetLogger(log)
	auth.SetLogger(log)
	render.SetLogger(log)
	remote.SetLogger(log)

	service, err := newContentService(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing content service")
	}
	defer service.Close()

	mux := service.routes()

	if cfg.Features.Authentication.Enabled {
		switch cfg.Features.Authentication.Type {
		case "clerk":
			service.authProvider = auth.NewClerkAuthProvider(os.Getenv("CLERK_API"))
		default:
			provider, err := auth.NewEd25519AuthProvider(
				os.Getenv("ED25519_PUBKEY"),
				"Authorization",
				"admin",
			)
			if err != nil {
				log.Fatal().Err(err).Msg("Error initializing ed25519 auth provider")
			}
			service.authProvider = provider
			auth.RegisterEd25519AuthRoutes(mux, provider)
		}
	}

	handler := http.Handler(secureHeaders(mux.ServeHTTP))
	if service.authProvider != nil {
		handler = service.authProvider.WithHeaderAuthorization()(handler)
	}

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Msg("Content service listening")
	log.Fatal().Err(http.ListenAndServe(addr, handler)).Msg("Server stopped")
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		h(w, r)
	}
}
