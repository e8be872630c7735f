// Package app 组装并运行 storevault 服务进程：存储资源、存储协调器、维护任务与运维 HTTP 服务.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/jobs"
	"github.com/yeisme/storevault/pkg/internal/router"
	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/internal/storage"
	"github.com/yeisme/storevault/pkg/log"
	"github.com/yeisme/storevault/pkg/metrics"
	"github.com/yeisme/storevault/pkg/scheduler"
	"github.com/yeisme/storevault/pkg/tracing"
)

// shutdownTimeout 优雅退出的最长等待时间.
const shutdownTimeout = 10 * time.Second

// App 一个 storevault 服务进程.
type App struct {
	Engine *gin.Engine

	config      *configs.AppConfig
	manager     *storage.Manager
	coordinator *service.Coordinator
	scheduler   *scheduler.Scheduler
	logger      *zerolog.Logger
}

// NewApp 按配置初始化追踪、指标、存储资源与维护任务. 失败时已打开的资源会被关闭.
func NewApp(ctx context.Context, config *configs.AppConfig) (a *App, err error) {
	logger := log.Component("app")

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	if err := tracing.InitTracer(ctx, config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	defer func() {
		if err != nil {
			_ = manager.Close()
		}
	}()

	coord, err := service.NewFromManager(manager, config)
	if err != nil {
		return nil, fmt.Errorf("init coordinator: %w", err)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	var pub message.Publisher
	if mq := manager.GetMQClient(); mq != nil {
		pub = mq.Publisher()
	}

	if err := jobs.RegisterCronJobs(ctx, sched, coord, pub, config); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	engine := router.New(config, router.Deps{Manager: manager, Coordinator: coord, Scheduler: sched})

	logger.Info().
		Uint("server_id", config.Storage.ServerID).
		Str("backend", string(config.Storage.Backend)).
		Str("db", string(config.DB.Type)).
		Msg("storevault initialized")

	return &App{
		Engine:      engine,
		config:      config,
		manager:     manager,
		coordinator: coord,
		scheduler:   sched,
		logger:      logger,
	}, nil
}

// Coordinator 返回存储协调器.
func (a *App) Coordinator() *service.Coordinator { return a.coordinator }

// Run 启动调度器与运维 HTTP 服务，直到 ctx 取消或服务出错，然后依次优雅关闭.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", srv.Addr).Msg("ops server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}

		return nil
	})

	a.scheduler.Start()

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	return errors.Join(err, a.Close())
}

// Close 停止调度器并释放全部资源.
func (a *App) Close() error {
	var errList []error

	if err := a.scheduler.Shutdown(); err != nil {
		errList = append(errList, fmt.Errorf("stop scheduler: %w", err))
	}

	if err := a.manager.Close(); err != nil {
		errList = append(errList, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := tracing.ShutdownTracer(ctx); err != nil {
		errList = append(errList, fmt.Errorf("shutdown tracer: %w", err))
	}

	a.logger.Info().Msg("storevault stopped")

	return errors.Join(errList...)
}
