// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストアのバックエンド種別
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"
	StoreBackendMemory   = "memory"
)

// MaxNewsPageSize はニュースソースから1回の実行で取得する記事数の上限。
const MaxNewsPageSize = 5

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend    string
	DatabaseURL     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Redis (任意: ワーカー間の実行ロック)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RunLockTTL    time.Duration

	// News source
	NewsAPIKey        string
	NewsAPIURL        string
	NewsQuery         string
	NewsLanguage      string
	NewsPageSize      int
	NewsWindow        time.Duration
	NewsAPITimeout    time.Duration
	NewsAPIMaxRetries int
	FeedURLs          []string
	FeedMaxSize       int64

	// Classifier (OpenAI互換API)
	LLMAPIKey          string
	LLMBaseURL         string
	ClassifierModel    string
	LLMTimeout         time.Duration
	LLMMaxRetries      int
	ClassifierInterval time.Duration

	// Translator / TTS
	TranslatorAPIKey  string
	TranslatorBaseURL string
	TranslatorModel   string
	TTSEndpoint       string
	TTSTimeout        time.Duration

	// Pipeline
	PipelineInterval   time.Duration
	PipelineRunTimeout time.Duration
	RetentionKeepCount int
	BulletinPath       string
	BroadcastLocation  *time.Location // 挨拶の時間帯を決めるタイムゾーン

	// Telegram (任意)
	TelegramBotToken string
	TelegramChatID   int64

	// Rate Limit (req/min)
	RateLimitTranslate int

	// Server
	ServerPort        string
	MetricsPort       string // workerが/metricsを公開するポート
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリ（またはENV_FILE）に.envがあれば先に読み込むが、
// 既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.NewsAPIKey = os.Getenv("NEWSAPI_KEY")
	if cfg.NewsAPIKey == "" {
		missing = append(missing, "NEWSAPI_KEY")
	}

	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	if cfg.LLMAPIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}

	cfg.StoreBackend = strings.ToLower(getEnvString("STORE_BACKEND", StoreBackendPostgres))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.MongoURI = os.Getenv("MONGO_URI")

	switch cfg.StoreBackend {
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreBackendMongo:
		if cfg.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
	case StoreBackendMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND: %q (allowed: postgres, mongo, memory)", cfg.StoreBackend)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MongoDatabase = getEnvString("MONGO_DATABASE", "newscast")
	cfg.MongoCollection = getEnvString("MONGO_COLLECTION", "news_broadcasts")

	cfg.RedisAddr = getEnvString("REDIS_ADDR", "")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.RunLockTTL = getEnvDuration("RUN_LOCK_TTL", 10*time.Minute)

	cfg.NewsAPIURL = getEnvString("NEWSAPI_URL", "https://newsapi.org/v2/everything")
	cfg.NewsQuery = getEnvString("NEWS_QUERY", "technology")
	cfg.NewsLanguage = getEnvString("NEWS_LANGUAGE", "en")
	cfg.NewsPageSize = clampPageSize(getEnvInt("NEWS_PAGE_SIZE", MaxNewsPageSize))
	cfg.NewsWindow = getEnvDuration("NEWS_WINDOW", 24*time.Hour)
	cfg.NewsAPITimeout = getEnvDuration("NEWSAPI_TIMEOUT", 10*time.Second)
	cfg.NewsAPIMaxRetries = getEnvInt("NEWSAPI_MAX_RETRIES", 2)
	cfg.FeedURLs = getEnvList("FEED_URLS")
	cfg.FeedMaxSize = getEnvInt64("FEED_MAX_SIZE", 5242880)

	cfg.LLMBaseURL = getEnvString("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/")
	cfg.ClassifierModel = getEnvString("CLASSIFIER_MODEL", "gemini-1.5-flash")
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", 30*time.Second)
	cfg.LLMMaxRetries = getEnvInt("LLM_MAX_RETRIES", 2)
	cfg.ClassifierInterval = getEnvDuration("CLASSIFIER_INTERVAL", 500*time.Millisecond)

	cfg.TranslatorAPIKey = getEnvString("TRANSLATOR_API_KEY", cfg.LLMAPIKey)
	cfg.TranslatorBaseURL = getEnvString("TRANSLATOR_BASE_URL", "")
	cfg.TranslatorModel = getEnvString("TRANSLATOR_MODEL", "gpt-3.5-turbo")
	cfg.TTSEndpoint = getEnvString("TTS_ENDPOINT", "https://translate.google.com/translate_tts")
	cfg.TTSTimeout = getEnvDuration("TTS_TIMEOUT", 15*time.Second)

	cfg.PipelineInterval = getEnvDuration("PIPELINE_INTERVAL", time.Hour)
	cfg.PipelineRunTimeout = getEnvDuration("PIPELINE_RUN_TIMEOUT", 5*time.Minute)
	cfg.RetentionKeepCount = getEnvInt("RETENTION_KEEP_COUNT", 5)
	cfg.BulletinPath = getEnvString("BULLETIN_PATH", "latest_news_script.json")

	tz := getEnvString("BROADCAST_TZ", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid BROADCAST_TZ %q: %w", tz, err)
	}
	cfg.BroadcastLocation = loc

	// ロックが実行中に失効すると別プロセスの実行と重なる
	if cfg.RedisAddr != "" && cfg.RunLockTTL <= cfg.PipelineRunTimeout {
		return nil, fmt.Errorf("RUN_LOCK_TTL (%s) must be longer than PIPELINE_RUN_TIMEOUT (%s)", cfg.RunLockTTL, cfg.PipelineRunTimeout)
	}

	cfg.TelegramBotToken = getEnvString("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramChatID = getEnvInt64("TELEGRAM_CHAT_ID", 0)

	cfg.RateLimitTranslate = getEnvInt("RATE_LIMIT_TRANSLATE", 30)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// loadDotEnv は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// clampPageSize はページサイズを1..MaxNewsPageSizeに収める。
func clampPageSize(n int) int {
	if n <= 0 || n > MaxNewsPageSize {
		return MaxNewsPageSize
	}
	return n
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数を空要素を除いたスライスとして返す。
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
