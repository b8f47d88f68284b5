package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	SymbolMapPath      string
	OutputDir          string
	MaxUploadSizeBytes int64

	// FilePasswords are tried in order against password-protected uploads.
	FilePasswords []string

	// ResultCacheTTL bounds how long a finished run's full report stays in
	// memory for the detail endpoints.
	ResultCacheTTL time.Duration

	AllowedOrigin string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "26214400")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 25MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 25 * 1024 * 1024
	}

	resultCacheTTLStr := getEnv("RESULT_CACHE_TTL", "2h")
	resultCacheTTL, err := time.ParseDuration(resultCacheTTLStr)
	if err != nil {
		log.Printf("WARNING: Invalid RESULT_CACHE_TTL format '%s'. Using default 2h. Error: %v", resultCacheTTLStr, err)
		resultCacheTTL = 2 * time.Hour
	}

	var passwords []string
	for _, p := range strings.Split(getEnv("FILE_PASSWORDS", ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			passwords = append(passwords, p)
		}
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./brokerecon.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SymbolMapPath:      getEnv("SYMBOL_MAP_PATH", "data/futures mapping.csv"),
		OutputDir:          getEnv("OUTPUT_DIR", "output"),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		FilePasswords:      passwords,
		ResultCacheTTL:     resultCacheTTL,
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, OutputDir=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.OutputDir)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}
