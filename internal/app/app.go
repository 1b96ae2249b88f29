package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/roomsched/internal/config"
	"github.com/hitoshi/roomsched/internal/database"
	"github.com/hitoshi/roomsched/internal/handler"
	"github.com/hitoshi/roomsched/internal/identity"
	"github.com/hitoshi/roomsched/internal/logger"
	"github.com/hitoshi/roomsched/internal/metrics"
	"github.com/hitoshi/roomsched/internal/middleware"
	"github.com/hitoshi/roomsched/internal/notify"
	"github.com/hitoshi/roomsched/internal/queue"
	"github.com/hitoshi/roomsched/internal/repository"
	"github.com/hitoshi/roomsched/internal/room"
	"github.com/hitoshi/roomsched/internal/scheduling"
	"github.com/hitoshi/roomsched/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映する
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "3000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("token_scheme", cfg.TokenScheme),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// services はAPIサーバーを構成する依存関係一式。
type services struct {
	handler   http.Handler
	engine    *scheduling.Engine
	store     *identity.Store
	catalog   *room.Catalog
	collector *metrics.Collector
	sinks     int
	closers   []func() error
}

// Close は構築時に開いたリソースを逆順に解放する。
func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// newTokenCodec は設定されたトークン方式のTokenCodecを返す。
func newTokenCodec(cfg *config.Config) identity.TokenCodec {
	if cfg.TokenScheme == config.TokenSchemeJWT {
		return identity.NewJWTCodec(cfg.TokenSecret)
	}
	slog.Warn("using unsigned base64 bearer tokens; any token naming a known user id is accepted",
		slog.String("token_scheme", cfg.TokenScheme),
	)
	return identity.Base64Codec{}
}

// buildServices はConfigから全依存関係をワイヤリングする。
// DATABASE_URLが設定されていればDB接続を開き、予約イベントの記録先に加える。
// AMQP_URLが設定されていればRabbitMQへの配信を加える。
func buildServices(cfg *config.Config) (*services, error) {
	s := &services{}

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollector(reg)

	// 2. ドメインコンポーネント
	s.store = identity.NewStore(identity.SeedUsers(), newTokenCodec(cfg))
	s.store.SetLoginRecorder(s.collector)
	s.catalog = room.NewCatalog(room.SeedRooms())
	s.engine = scheduling.NewEngine(s.catalog)
	s.engine.SetMetrics(s.collector)

	// 3. 予約イベントの記録先
	var sinks []notify.Sink
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.closers = append(s.closers, db.Close)

		if err := db.Ping(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")

		repo := repository.NewPostgresAppointmentEventRepo(db)
		sinks = append(sinks, notify.SinkFunc("postgres", repo.Insert))
	}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		s.closers = append(s.closers, pub.Close)
		sinks = append(sinks, pub)
		slog.Info("appointment events will be published", slog.String("queue", cfg.AMQPQueue))
	}
	if len(sinks) > 0 {
		dispatcher := notify.NewDispatcher(slog.Default(), sinks...)
		dispatcher.SetFailureRecorder(s.collector)
		s.engine.SetEventRecorder(dispatcher)
		// 逆順に解放するため、通知先より先にキューを送信し終えてから接続を閉じる
		s.closers = append(s.closers, dispatcher.Close)
	}
	s.sinks = len(sinks)

	// 4. ルーター
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigFromPerMinute(
		cfg.RateLimitGeneral, cfg.RateLimitBooking, cfg.RateLimitLogin,
	))
	s.closers = append(s.closers, func() error {
		rl.Stop()
		return nil
	})

	deps := &handler.RouterDeps{
		TokenResolver:      s.store,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
		RateLimiter:        rl,
		Logger:             slog.Default(),
		HTTPMetrics:        s.collector,
		AuthService:        s.store,
		RoomService:        s.catalog,
		AppointmentService: handler.NewSchedulingServiceAdapter(s.engine),
	}
	if db != nil {
		deps.HealthChecker = db
	}
	if cfg.MetricsEnabled {
		deps.MetricsHandler = metrics.Handler(reg)
	}
	s.handler = handler.NewRouter(deps)

	return s, nil
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("failed to release resources", slog.String("error", err.Error()))
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      svc.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Int("rooms", len(svc.catalog.ListRooms())),
			slog.Int("event_sinks", svc.sinks),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 予約イベントの保持期間クリーンアップをCLEANUP_INTERVAL毎に実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("worker requires DATABASE_URL")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	job := cleanup.NewCleanupJob(db, slog.Default(), cfg.EventRetentionDays)

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("retention_days", job.RetentionDays),
	)

	job.RunEvery(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
