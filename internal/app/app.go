package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/minyanim/internal/calendar"
	"github.com/hitoshi/minyanim/internal/config"
	"github.com/hitoshi/minyanim/internal/database"
	"github.com/hitoshi/minyanim/internal/handler"
	"github.com/hitoshi/minyanim/internal/hebrew"
	"github.com/hitoshi/minyanim/internal/logger"
	"github.com/hitoshi/minyanim/internal/metrics"
	"github.com/hitoshi/minyanim/internal/middleware"
	"github.com/hitoshi/minyanim/internal/provider"
	"github.com/hitoshi/minyanim/internal/repository"
	"github.com/hitoshi/minyanim/internal/schedule"
	"github.com/hitoshi/minyanim/internal/security"
	"github.com/hitoshi/minyanim/internal/seed"
	"github.com/hitoshi/minyanim/internal/worker/cleanup"
	"github.com/hitoshi/minyanim/internal/worker/importer"
	"github.com/hitoshi/minyanim/internal/zmanim"
)

// cleanupInterval はクリーンアップジョブの実行間隔。
const cleanupInterval = 24 * time.Hour

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップする
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("unknown log level, falling back to info",
			slog.String("log_level", cfg.LogLevel),
		)
		level = slog.LevelInfo
	}
	logger.SetupDefault(w, level)

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
			port = "8080"
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
		slog.String("location", cfg.ZmanimLocationName),
	)

	rest := commandArgs(args)
	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, rest)
	case CommandImport:
		return runImport(cfg, w, rest)
	case CommandSeed:
		return runSeed(cfg, rest)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newOracle はHebcalクライアントをDBキャッシュで包んだズマンのソースを構築する。
func newOracle(cfg *config.Config, cache repository.ZmanimCacheRepository) zmanim.Oracle {
	limit := rate.Inf
	if cfg.ZmanimAPIRate > 0 {
		limit = rate.Limit(cfg.ZmanimAPIRate)
	}
	hebcal := zmanim.NewHebcalClient(
		&http.Client{Timeout: cfg.ZmanimAPITimeout},
		cfg.ZmanimLocation(),
		cfg.ZmanimAPIURL,
		rate.NewLimiter(limit, 1),
		slog.Default(),
	)
	return zmanim.NewCachingOracle(hebcal, cache, slog.Default())
}

// newImportService はカレンダー取り込みサービスを構築する。
func newImportService(
	cfg *config.Config,
	orgs calendar.OrganizationSource,
	entries calendar.EntryStore,
	oracle zmanim.Oracle,
	recorder calendar.ImportRecorder,
	loc *time.Location,
) *calendar.ImportService {
	guard := security.NewURLGuard()
	fetcher := calendar.NewFetcher(guard, guard.NewSafeClient(cfg.ImportTimeout), cfg.ImportMaxSize, slog.Default())
	return calendar.NewImportService(orgs, entries, fetcher, oracle, recorder, calendar.ImportConfig{
		Location:    loc,
		PastDays:    cfg.ImportPastDays,
		AheadDays:   cfg.ImportAheadDays,
		OrgInterval: cfg.ImportOrgInterval,
	}, slog.Default())
}

// newMetricsRegistry はランタイムのメトリクスを含むレジストリとCollectorを生成する。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// rateLimiterConfig はreq/min単位の設定値をreq/secのレート制限設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	return rlCfg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	loc, err := cfg.ZmanimLocation().LoadTimeZone()
	if err != nil {
		return err
	}

	// 1. DB接続
	db, err := openDatabase(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	orgRepo := repository.NewPostgresOrganizationRepo(db)
	locationRepo := repository.NewPostgresLocationRepo(db)
	minyanRepo := repository.NewPostgresMinyanRepo(db, slog.Default())
	entryRepo := repository.NewPostgresCalendarEntryRepo(db, loc)
	cacheRepo := repository.NewPostgresZmanimCacheRepo(db, loc)

	// 3. メトリクス
	registry, collector := newMetricsRegistry()

	// 4. ズマンと暦
	oracle := newOracle(cfg, cacheRepo)
	hebrewCal := hebrew.NewCalendar(cfg.InIsrael)
	classifier := schedule.NewClassifier(hebrewCal)
	evaluator := schedule.NewEvaluator(oracle, loc)

	// 5. 礼拝一覧の提供元
	resolver := provider.NewResolver(orgRepo, collector, slog.Default(),
		provider.NewCalendarImportProvider(entryRepo, loc, slog.Default()),
		provider.NewRuleBasedProvider(minyanRepo, locationRepo, classifier, evaluator, slog.Default()),
	)

	// 6. カレンダー取り込み
	importService := newImportService(cfg, orgRepo, entryRepo, oracle, collector, loc)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg), slog.Default())
	defer rateLimiter.Stop()

	if cfg.AdminToken == "" {
		slog.Warn("ADMIN_TOKEN is not set, calendar import API is disabled")
	}

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		Gatherer:          registry,
		AdminToken:        cfg.AdminToken,

		Location: loc,
		Now:      time.Now,

		Organizations: orgRepo,
		Resolver:      resolver,

		Oracle:         oracle,
		ZmanimLocation: cfg.ZmanimLocation(),
		Classifier:     classifier,
		Calendar:       hebrewCal,

		Importer: importService,

		Health: db,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // 取り込みAPIはカレンダー取得を同期で待つ
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Any("providers", resolver.Providers()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// cron式に従う定期取り込みと、日次のクリーンアップジョブを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if err := importer.ValidateCronSpec(cfg.ImportCron); err != nil {
		return err
	}
	loc, err := cfg.ZmanimLocation().LoadTimeZone()
	if err != nil {
		return err
	}

	// 1. DB接続
	db, err := openDatabase(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	orgRepo := repository.NewPostgresOrganizationRepo(db)
	entryRepo := repository.NewPostgresCalendarEntryRepo(db, loc)
	cacheRepo := repository.NewPostgresZmanimCacheRepo(db, loc)

	// ワーカーのメトリクスは公開しないが、記録先として同じCollectorを使う
	_, collector := newMetricsRegistry()

	// 3. 取り込みサービスとスケジューラ
	// 団体間の間隔はスケジューラが制御するため、サービス側では空けない
	workerCfg := *cfg
	workerCfg.ImportOrgInterval = 0
	importService := newImportService(&workerCfg, orgRepo, entryRepo, newOracle(cfg, cacheRepo), collector, loc)

	scheduler := importer.NewScheduler(orgRepo, importService, importer.Config{
		CronSpec:       cfg.ImportCron,
		MaxConcurrency: cfg.ImportMaxConcurrent,
		OrgInterval:    cfg.ImportOrgInterval,
		Location:       loc,
		RetryAttempts:  cfg.ImportRetryAttempts,
		RetryBackoff:   cfg.ImportRetryBackoff,
	}, slog.Default())

	// 4. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(entryRepo, cacheRepo, collector, loc, slog.Default())
	cleanupJob.EntryRetentionDays = cfg.EntryRetentionDays
	cleanupJob.ZmanimRetentionDays = cfg.ZmanimCacheRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("worker starting",
		slog.String("import_cron", cfg.ImportCron),
		slog.Int("max_concurrent", cfg.ImportMaxConcurrent),
		slog.Int("entry_retention_days", cfg.EntryRetentionDays),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go cleanupJob.Start(ctx, cleanupInterval)

	// 取り込みスケジューラをメインgoroutineで実行（ブロッキング）
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
//
//	migrate            未適用のマイグレーションをすべて適用する
//	migrate up         同上
//	migrate down <n>   直近n件を取り消す
//	migrate version    現在のバージョンを表示する
func runMigrate(cfg *config.Config, args []string) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}

	slog.Info("running database migrations",
		slog.String("action", action),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case "up":
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case "down":
		if len(args) < 2 {
			return errors.New("migrate down requires the number of steps")
		}
		steps, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid number of steps %q: %w", args[1], err)
		}
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
	case "version":
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("current migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
		return nil
	default:
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runImport はカレンダー取り込みを1回実行し、団体ごとの件数をwに出力する。
// 団体IDを指定した場合はその団体のみ、省略時は取り込み対象の全団体を順に処理する。
func runImport(cfg *config.Config, w io.Writer, args []string) error {
	loc, err := cfg.ZmanimLocation().LoadTimeZone()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	orgRepo := repository.NewPostgresOrganizationRepo(db)
	entryRepo := repository.NewPostgresCalendarEntryRepo(db, loc)
	cacheRepo := repository.NewPostgresZmanimCacheRepo(db, loc)
	importService := newImportService(cfg, orgRepo, entryRepo, newOracle(cfg, cacheRepo), nil, loc)

	if len(args) > 0 {
		result, err := importService.ImportOrganization(ctx, args[0])
		if result != nil {
			fmt.Fprintf(w, "%s: new=%d updated=%d duplicates=%d\n",
				result.OrganizationID, result.NewEntries, result.UpdatedEntries, result.DuplicatesSkipped)
		}
		return err
	}

	results, err := importService.ImportAll(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
		fmt.Fprintf(w, "%s: new=%d updated=%d duplicates=%d\n",
			r.OrganizationID, r.NewEntries, r.UpdatedEntries, r.DuplicatesSkipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d organizations failed to import", failed, len(results))
	}
	return nil
}

// runSeed はYAMLファイルから団体・礼拝場所・定例礼拝を登録する。
func runSeed(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("seed requires a YAML file path")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	file, err := seed.Load(f)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := seed.NewSeeder(db, slog.Default()).Run(ctx, file); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
