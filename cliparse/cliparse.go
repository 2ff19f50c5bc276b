package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	// Auth: Supabase-style remote verification and/or static tokens
	AuthURL    string
	AuthAPIKey string
	APITokens  map[string]string // token name -> token

	GeminiAPIKey string
	GeminiModel  string
	PromptsDir   string

	WorkerEnabled     bool
	WorkerInterval    time.Duration
	WorkerConcurrency int
	JobMaxAttempts    int
	JobStaleAfter     time.Duration

	AllowedOrigin string
}

const (
	DefaultPort           = 3318
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultPromptsDir     = "./prompts"
	DefaultWorkerInterval = 20 * time.Second
	DefaultJobMaxAttempts = 3
	DefaultJobStaleAfter  = 10 * time.Minute
)

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var apiTokens, workerEnabled, workerInterval, staleAfter string

	fs := flag.NewFlagSet("rinkside", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AuthURL, "auth-url", "", "Auth provider base URL")
	fs.StringVar(&cfg.AuthAPIKey, "auth-key", "", "Auth provider API key (prefer env)")
	fs.StringVar(&apiTokens, "api-tokens", "", "Static API tokens as name:token,... (prefer env)")
	fs.StringVar(&cfg.GeminiAPIKey, "gemini-key", "", "Gemini API key (prefer env)")
	fs.StringVar(&cfg.GeminiModel, "gemini-model", "", "Gemini model name")
	fs.StringVar(&cfg.PromptsDir, "prompts-dir", "", "Directory holding prompt templates")

	// Background job worker
	fs.StringVar(&workerEnabled, "worker", "", "Run the generation job worker (true/false)")
	fs.StringVar(&workerInterval, "worker-interval", "", "Worker poll interval")
	fs.IntVar(&cfg.WorkerConcurrency, "worker-concurrency", 0, "Number of concurrent job workers")
	fs.IntVar(&cfg.JobMaxAttempts, "job-max-attempts", 0, "Attempts before a job is marked failed")
	fs.StringVar(&staleAfter, "job-stale-after", "", "Reclaim in_progress jobs older than this")

	fs.StringVar(&cfg.AllowedOrigin, "allowed-origin", "", "CORS allowed origin")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	cfg.DatabaseType = firstNonEmpty(cfg.DatabaseType, os.Getenv("DATABASE_TYPE"), "sqlite")
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	cfg.AuthURL = strings.TrimRight(firstNonEmpty(cfg.AuthURL, os.Getenv("AUTH_URL")), "/")
	cfg.AuthAPIKey = firstNonEmpty(cfg.AuthAPIKey, os.Getenv("AUTH_API_KEY"))

	tokens, err := ParseTokens(firstNonEmpty(apiTokens, os.Getenv("API_TOKENS")))
	if err != nil {
		return Config{}, err
	}
	cfg.APITokens = tokens

	// At least one way to authenticate CMS users MUST be configured
	if cfg.AuthURL == "" && len(cfg.APITokens) == 0 {
		return Config{}, errors.New("AUTH_URL or API_TOKENS required")
	}

	cfg.GeminiAPIKey = firstNonEmpty(cfg.GeminiAPIKey, os.Getenv("GEMINI_API_KEY"))
	cfg.GeminiModel = firstNonEmpty(cfg.GeminiModel, os.Getenv("GEMINI_MODEL"), DefaultGeminiModel)
	cfg.PromptsDir = firstNonEmpty(cfg.PromptsDir, os.Getenv("PROMPTS_DIR"), DefaultPromptsDir)

	if v := firstNonEmpty(workerEnabled, os.Getenv("WORKER_ENABLED")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.New("invalid WORKER_ENABLED value")
		}
		cfg.WorkerEnabled = enabled
	}

	cfg.WorkerInterval, err = parseDuration(firstNonEmpty(workerInterval, os.Getenv("WORKER_INTERVAL")), DefaultWorkerInterval)
	if err != nil {
		return Config{}, fmt.Errorf("invalid WORKER_INTERVAL: %w", err)
	}
	cfg.JobStaleAfter, err = parseDuration(firstNonEmpty(staleAfter, os.Getenv("JOB_STALE_AFTER")), DefaultJobStaleAfter)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JOB_STALE_AFTER: %w", err)
	}

	if cfg.WorkerConcurrency == 0 {
		cfg.WorkerConcurrency, err = envInt("WORKER_CONCURRENCY", 1)
		if err != nil {
			return Config{}, err
		}
	}
	if cfg.JobMaxAttempts == 0 {
		cfg.JobMaxAttempts, err = envInt("JOB_MAX_ATTEMPTS", DefaultJobMaxAttempts)
		if err != nil {
			return Config{}, err
		}
	}
	if cfg.WorkerConcurrency < 1 || cfg.JobMaxAttempts < 1 {
		return Config{}, errors.New("worker concurrency and job max attempts must be positive")
	}

	cfg.AllowedOrigin = firstNonEmpty(cfg.AllowedOrigin, os.Getenv("ALLOWED_ORIGIN"))

	return cfg, nil
}

// ParseTokens parses "name:token,name2:token2". A bare token is named after its position.
func ParseTokens(s string) (map[string]string, error) {
	tokens := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return tokens, nil
	}
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, token, found := strings.Cut(part, ":")
		if !found {
			name, token = "token-"+strconv.Itoa(i+1), part
		}
		name, token = strings.TrimSpace(name), strings.TrimSpace(token)
		if name == "" || token == "" {
			return nil, fmt.Errorf("invalid API token entry %q", part)
		}
		tokens[name] = token
	}
	return tokens, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("duration must be positive")
	}
	return d, nil
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", name)
	}
	return n, nil
}
