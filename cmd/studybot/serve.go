package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/noah-isme/studybot/internal/handler"
	"github.com/noah-isme/studybot/internal/models"
	"github.com/noah-isme/studybot/internal/repository"
	"github.com/noah-isme/studybot/internal/service"
	"github.com/noah-isme/studybot/pkg/cache"
	"github.com/noah-isme/studybot/pkg/config"
	"github.com/noah-isme/studybot/pkg/database"
	"github.com/noah-isme/studybot/pkg/jobs"
	"github.com/noah-isme/studybot/pkg/logger"
)

type memberStore interface {
	FindByPlatformID(ctx context.Context, platformID string) (*models.EventUser, error)
	Create(ctx context.Context, user *models.EventUser) error
	List(ctx context.Context) ([]models.EventUser, error)
}

type stores struct {
	events  service.EventStore
	members memberStore
	probe   handler.ReadinessProbe
	close   func()
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "Listen port, overrides PORT."},
			&cli.StringFlag{Name: "store", Usage: "Event store driver: postgres, mongo or memory. Overrides STORE_DRIVER."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			if c.IsSet("store") {
				cfg.Store.Driver = c.String("store")
			}
			return runServer(c.Context, cfg)
		},
	}
}

func runServer(parent context.Context, cfg *config.Config) error {
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer st.close()

	metrics := service.NewMetricsService()
	listings, redisProbe, closeRedis := openListingCache(ctx, cfg, metrics, logr)
	defer closeRedis()

	loc := cfg.Events.Location()
	clock := service.NewSystemClock(loc)
	validate := validator.New()

	locks := service.NewEventLocks()
	lifecycle := service.NewEventLifecycleService(st.events, locks, clock, loc, cfg.Events.DefaultMaxAttendees, validate, listings, logr)
	attendance := service.NewAttendanceService(st.events, locks, metrics, listings, logr)
	queries := service.NewEventQueryService(st.events, clock, listings, cfg.Events.ListingCacheTTL, logr)
	users := service.NewUserService(st.members, service.VerificationPolicy{
		EmailDomain:    cfg.Verification.EmailDomain,
		MinEmailLength: cfg.Verification.MinEmailLength,
	}, validate, logr)

	notifications := service.NewNotificationService(nil, service.NewLogNotifier(logr), metrics, logr)
	queue := jobs.NewQueue("notifications", notifications.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	notifications.AttachQueue(queue)

	commands := service.NewEventCommandService(lifecycle, attendance, users, notifications, logr)
	auth := service.NewAuthService(st.members, clock, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	roster := service.NewRosterService(st.events, st.members, nil, nil, logr)
	calendar := service.NewCalendarInviteService(st.events, clock, cfg.Bot.CalendarDomain, logr)

	if cfg.Sweeper.Enabled {
		sweeper := service.NewEventSweeper(queries, listings, metrics, cfg.Sweeper.Schedule, logr)
		if err := sweeper.Start(ctx); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	router := newRouter(cfg, logr, routeDeps{
		auth:    handler.NewAuthHandler(auth),
		users:   handler.NewUserHandler(users),
		events:  handler.NewEventHandler(commands, queries, roster, calendar),
		metrics: handler.NewMetricsHandler(metrics, probes(st, redisProbe)...),
		tokens:  auth,
		metric:  metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres, "":
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &stores{
			events:  repository.NewStudyEventRepository(db),
			members: repository.NewEventUserRepository(db),
			probe:   handler.ReadinessProbe{Name: "postgres", Check: db.PingContext},
			close:   func() { _ = db.Close() },
		}, nil
	case config.StoreDriverMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return &stores{
			events:  repository.NewMongoStudyEventRepository(db.Collection(cfg.Mongo.Collection)),
			members: repository.NewMongoEventUserRepository(db.Collection(cfg.Mongo.UsersCollection)),
			probe: handler.ReadinessProbe{Name: "mongo", Check: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			}},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logr.Warn("mongo disconnect failed", zap.Error(err))
				}
			},
		}, nil
	case config.StoreDriverMemory:
		logr.Warn("using in-memory store; data is lost on restart")
		return &stores{
			events:  repository.NewMemoryStudyEventRepository(),
			members: repository.NewMemoryEventUserRepository(),
			close:   func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openListingCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.ListingCache, *handler.ReadinessProbe, func()) {
	ttl := cfg.Events.ListingCacheTTL
	if !cfg.Redis.Enabled {
		return service.NewListingCache(nil, ttl, metrics, logr), nil, func() {}
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, listing cache disabled", zap.Error(err))
		return service.NewListingCache(nil, ttl, metrics, logr), nil, func() {}
	}
	store := repository.NewRedisListingStore(client, "studybot:", logr)
	probe := &handler.ReadinessProbe{Name: "redis", Check: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
	return service.NewListingCache(store, ttl, metrics, logr), probe, func() { _ = client.Close() }
}

func probes(st *stores, redisProbe *handler.ReadinessProbe) []handler.ReadinessProbe {
	out := make([]handler.ReadinessProbe, 0, 2)
	if st.probe.Check != nil {
		out = append(out, st.probe)
	}
	if redisProbe != nil {
		out = append(out, *redisProbe)
	}
	return out
}
