package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/brokerecon/backend/src/config"
	"github.com/username/brokerecon/backend/src/database"
	"github.com/username/brokerecon/backend/src/handlers"
	"github.com/username/brokerecon/backend/src/logger"
	"github.com/username/brokerecon/backend/src/services"
	"github.com/username/brokerecon/backend/src/ticker"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin == config.Cfg.AllowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Brokerecon backend server starting...")

	logger.L.Info("Loading symbol map...", "path", config.Cfg.SymbolMapPath)
	symbols, err := ticker.LoadSymbolMap(config.Cfg.SymbolMapPath)
	if err != nil {
		logger.L.Warn("Symbol map unavailable; tickers will use raw symbols", "error", err)
		symbols = ticker.EmptySymbolMap()
	} else {
		logger.L.Info("Symbol map loaded", "entries", symbols.Len())
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing result cache...", "ttl", config.Cfg.ResultCacheTTL)
	resultCache := cache.New(config.Cfg.ResultCacheTTL, 30*time.Minute)

	logger.L.Info("Initializing services and handlers...")
	reconService := services.NewReconService(
		symbols, resultCache, config.Cfg.ResultCacheTTL,
		config.Cfg.FilePasswords, config.Cfg.OutputDir,
	)
	reconHandler := handlers.NewReconHandler(reconService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/recon", reconHandler.HandleRunReconciliation)
	apiRouter.HandleFunc("GET /api/recon/runs", reconHandler.HandleListRuns)
	apiRouter.HandleFunc("GET /api/recon/runs/{id}", reconHandler.HandleGetRun)
	apiRouter.HandleFunc("GET /api/recon/runs/{id}/report", reconHandler.HandleGetReport)
	apiRouter.HandleFunc("GET /api/recon/runs/{id}/enhanced", reconHandler.HandleDownloadEnhanced)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "BROKERECON Backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
