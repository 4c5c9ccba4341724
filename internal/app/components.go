package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hitoshi/newscast/internal/bulletin"
	"github.com/hitoshi/newscast/internal/classify"
	"github.com/hitoshi/newscast/internal/compose"
	"github.com/hitoshi/newscast/internal/config"
	"github.com/hitoshi/newscast/internal/database"
	"github.com/hitoshi/newscast/internal/handler"
	"github.com/hitoshi/newscast/internal/llm"
	"github.com/hitoshi/newscast/internal/lock"
	"github.com/hitoshi/newscast/internal/metrics"
	"github.com/hitoshi/newscast/internal/notify"
	"github.com/hitoshi/newscast/internal/pipeline"
	"github.com/hitoshi/newscast/internal/repository"
	"github.com/hitoshi/newscast/internal/security"
	"github.com/hitoshi/newscast/internal/source"
	"github.com/hitoshi/newscast/internal/speech"
	"github.com/hitoshi/newscast/internal/worker/cleanup"
	"github.com/hitoshi/newscast/internal/worker/scheduler"
)

// components は各サブコマンドが共有する依存関係一式。
type components struct {
	store     repository.BroadcastRepository
	health    handler.HealthChecker
	registry  *prometheus.Registry
	metrics   *metrics.Collector
	scheduler *scheduler.Scheduler
	speech    *speech.Service

	closers []func()
}

// Close は確保したリソースを逆順に解放する。
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// buildComponents は設定から全依存関係をワイヤリングする。
// 失敗した場合はそれまでに確保したリソースを解放してからエラーを返す。
func buildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *components, err error) {
	c := &components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// 1. メトリクス
	c.registry = prometheus.NewRegistry()
	c.metrics = metrics.NewCollector(c.registry)

	// 2. ストア
	if err = c.openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}

	// 3. ニュースソース（NewsAPI → RSSフィードの順に試す）
	newsAPI := source.NewNewsAPIClient(
		&http.Client{Timeout: cfg.NewsAPITimeout},
		logger,
		source.NewsAPIConfig{
			Endpoint:   cfg.NewsAPIURL,
			APIKey:     cfg.NewsAPIKey,
			MaxRetries: cfg.NewsAPIMaxRetries,
		},
	)
	sources := []source.ArticleSource{newsAPI}
	guard := security.NewURLGuard()
	if feedURLs := validFeedURLs(cfg.FeedURLs, guard, logger); len(feedURLs) > 0 {
		sources = append(sources, source.NewFeedSource(
			guard.NewSafeClient(cfg.NewsAPITimeout), logger, feedURLs, cfg.FeedMaxSize,
		))
	}

	// 4. 分類・原稿生成
	classifierLLM := llm.NewClient(llm.Config{
		APIKey:     cfg.LLMAPIKey,
		BaseURL:    cfg.LLMBaseURL,
		Model:      cfg.ClassifierModel,
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMMaxRetries,
	})
	classifier := classify.NewClassifier(classifierLLM, logger, cfg.ClassifierInterval)
	composer := compose.NewComposer(time.Now)
	composer.Location = cfg.BroadcastLocation

	// 5. 保持件数ポリシー
	retention := cleanup.NewCleanupJob(c.store, logger)
	retention.KeepCount = cfg.RetentionKeepCount
	retention.SetMetrics(c.metrics)

	// 6. 配信（任意）
	var notifier notify.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, tgErr := notify.NewTelegramNotifier(
			cfg.TelegramBotToken, cfg.TelegramChatID, &http.Client{Timeout: 10 * time.Second}, logger,
		)
		if tgErr != nil {
			logger.Warn("telegram notifier disabled", slog.String("error", tgErr.Error()))
		} else {
			notifier = tg
		}
	}

	p := pipeline.New(pipeline.Deps{
		Source:     source.NewFallback(logger, sources...),
		Classifier: classifier,
		Composer:   composer,
		Store:      c.store,
		Retention:  retention,
		Bulletin:   bulletin.NewWriter(cfg.BulletinPath, time.Now),
		Notifier:   notifier,
		Metrics:    c.metrics,
		Logger:     logger,
	}, pipeline.QueryConfig{
		Topic:    cfg.NewsQuery,
		Language: cfg.NewsLanguage,
		PageSize: cfg.NewsPageSize,
		Window:   cfg.NewsWindow,
	})

	// 7. スケジューラ（REDIS_ADDR設定時はプロセス間でも排他する）
	opts := scheduler.Options{
		Interval:   cfg.PipelineInterval,
		RunTimeout: cfg.PipelineRunTimeout,
		Metrics:    c.metrics,
	}
	if cfg.RedisAddr != "" {
		rdb, redisErr := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if redisErr != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", redisErr)
		}
		c.closers = append(c.closers, func() { rdb.Close() })
		opts.Locker = lock.NewRedisLocker(rdb, lock.DefaultKey, cfg.RunLockTTL)
		logger.Info("redis run lock enabled", slog.String("addr", cfg.RedisAddr))
	}
	c.scheduler = scheduler.New(p, logger, opts)

	// 8. 翻訳音声
	translatorLLM := llm.NewClient(llm.Config{
		APIKey:     cfg.TranslatorAPIKey,
		BaseURL:    cfg.TranslatorBaseURL,
		Model:      cfg.TranslatorModel,
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMMaxRetries,
	})
	c.speech = speech.NewService(
		speech.NewTranslator(translatorLLM),
		speech.NewTTSClient(&http.Client{Timeout: cfg.TTSTimeout}, cfg.TTSEndpoint),
		logger,
		c.metrics,
	)

	return c, nil
}

// openStore はSTORE_BACKENDに応じた放送原稿ストアを開く。
func (c *components) openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, func() { db.Close() })

		c.store = repository.NewPostgresBroadcastRepo(db)
		c.health = db

	case config.StoreBackendMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		c.closers = append(c.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		})
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		c.store = repository.NewMongoBroadcastRepo(coll)
		c.health = mongoPinger{client: client}

	default:
		c.store = repository.NewMemoryBroadcastRepo()
	}

	logger.Info("broadcast store ready", slog.String("backend", cfg.StoreBackend))
	return nil
}

// mongoPinger は*mongo.ClientをHealthCheckerに適合させる。
type mongoPinger struct {
	client *mongo.Client
}

func (m mongoPinger) PingContext(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// validFeedURLs はSSRF対策の静的検証を通過したフィードURLのみを返す。
func validFeedURLs(urls []string, guard security.URLGuard, logger *slog.Logger) []string {
	valid := make([]string, 0, len(urls))
	for _, u := range urls {
		if err := guard.ValidateURL(u); err != nil {
			logger.Warn("feed url rejected",
				slog.String("url", u),
				slog.String("error", err.Error()),
			)
			continue
		}
		valid = append(valid, u)
	}
	return valid
}
