package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL     = "http://localhost:8000"
	DefaultAPITimeout = 60 * time.Second
	DefaultDataDir    = "data"
	DefaultLanguage   = "en"
)

// History backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the configuration for the application.
type Config struct {
	Env string

	// Remote generation service
	APIURL     string
	APITimeout time.Duration

	// Local state
	HistoryBackend string
	DataDir        string
	DatabasePath   string
	Language       string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	apiURL := strings.TrimRight(os.Getenv("SHOPSMART_API_URL"), "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	timeout := DefaultAPITimeout
	if raw := os.Getenv("SHOPSMART_API_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("SHOPSMART_API_TIMEOUT is not a valid duration: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("SHOPSMART_API_TIMEOUT must be positive, got %s", d)
		}
		timeout = d
	}

	backend := os.Getenv("SHOPSMART_HISTORY_BACKEND")
	switch backend {
	case "":
		backend = BackendFile
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown SHOPSMART_HISTORY_BACKEND %q", backend)
	}

	dataDir := os.Getenv("SHOPSMART_DATA_DIR")
	if dataDir == "" {
		dataDir = DefaultDataDir
	}

	dbPath := os.Getenv("SHOPSMART_DATABASE_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "shopsmart.db")
	}

	language := os.Getenv("SHOPSMART_LANGUAGE")
	if language == "" {
		language = DefaultLanguage
	}

	allowed, err := parseUserIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:                    os.Getenv("ENV"),
		APIURL:                 apiURL,
		APITimeout:             timeout,
		HistoryBackend:         backend,
		DataDir:                dataDir,
		DatabasePath:           dbPath,
		Language:               language,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
	}, nil
}

// RequireTelegram checks the settings only the bot needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q in TELEGRAM_ALLOWED_USER_IDS: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
