package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"bookie/config"
	"bookie/database"
	"bookie/events"
	"bookie/models"
	"bookie/notifier"
	"bookie/queue"
	"bookie/repository"
	"bookie/service"
)

// busPublisher adapts the in-process bus to the service EventPublisher
// interface for callers outside a unit of work
type busPublisher struct {
	bus *events.Bus
}

func (p busPublisher) Publish(event events.Event) {
	p.bus.Emit(context.Background(), event)
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting bookie...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus and unit of work factory
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize Redis-backed rate limiting when configured
	var rateLimiter service.RateLimiter
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		rateLimiter = service.NewRedisRateLimiter(redisClient, cfg.WagerRateLimit, cfg.WagerRateWindow)
		log.Println("Redis connection established successfully")
	} else {
		log.Println("REDIS_ADDR not set, wager rate limiting disabled")
	}

	// Initialize NATS for the job queue and outbound notifications
	var (
		nc         *nats.Conn
		jobQueue   service.JobQueue
		jobWorkerQ *queue.Queue
		notify     notifier.Notifier = notifier.NoopNotifier{}
	)
	if cfg.NatsURL != "" {
		nc, err = nats.Connect(cfg.NatsURL,
			nats.Name("bookie"),
			nats.MaxReconnects(10),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Println("NATS connection established successfully")

		q, err := queue.New(nc)
		if err != nil {
			return fmt.Errorf("failed to initialize job queue: %w", err)
		}
		jobQueue = q
		jobWorkerQ = q
		notify = notifier.NewNATSNotifier(nc)
	} else {
		log.Println("NATS_URL not set, job queue and notifications disabled")
	}
	notifier.Attach(eventBus, notify)

	// Initialize services
	accountService := service.NewAccountService(uowFactory, cfg)
	scheduler := service.NewRoundScheduler(uowFactory, cfg)
	commissionService := service.NewCommissionService(uowFactory, cfg, busPublisher{bus: eventBus})
	settlementService := service.NewSettlementService(uowFactory, cfg, commissionService)
	wagerService := service.NewWagerService(uowFactory, cfg, rateLimiter, jobQueue)
	log.Println("Services initialized successfully")

	// Every account hangs off the house root; make sure it exists
	rootAccount, err := accountService.GetOrCreateAccount(ctx, "house", models.RoleSuperAdmin, nil)
	if err != nil {
		return fmt.Errorf("failed to ensure root account: %w", err)
	}

	// Start the post-wager job worker and the wager intake responder
	var jobSub, intakeSub *nats.Subscription
	if jobWorkerQ != nil {
		jobSub, err = jobWorkerQ.StartWorker(func(jobCtx context.Context, job queue.PostWagerJob) error {
			return auditWager(jobCtx, uowFactory, job)
		})
		if err != nil {
			return fmt.Errorf("failed to start job worker: %w", err)
		}
	}
	if nc != nil {
		intakeSub, err = startWagerIntake(nc, accountService, scheduler, wagerService, rootAccount.ID)
		if err != nil {
			return fmt.Errorf("failed to start wager intake: %w", err)
		}
		log.Printf("Wager intake listening on %s", wagerIntakeSubject)
	}

	// Start the settlement worker
	worker := service.NewSettlementWorker(uowFactory, scheduler, settlementService, cfg.SettleInterval)
	go worker.Run(ctx)

	// Serve Prometheus metrics
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// Wait for context cancellation
	log.Printf("Bookie is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics server: %v", err)
	}

	if intakeSub != nil {
		if err := intakeSub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing wager intake: %v", err)
		}
	}
	if jobSub != nil {
		if err := jobSub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing job worker: %v", err)
		}
	}
	if nc != nil {
		nc.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}

	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}

// auditWager confirms the committed wager is readable and logs an intake
// audit line; jobs for wagers that vanished are dropped rather than retried
func auditWager(ctx context.Context, uowFactory service.UnitOfWorkFactory, job queue.PostWagerJob) error {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByID(ctx, job.WagerID)
	if err != nil {
		return err
	}
	if wager == nil {
		log.Printf("Post-wager job %s references missing wager %d, dropping", job.JobID, job.WagerID)
		return nil
	}

	log.Printf("Wager audit: id=%d round=%d account=%d outcome=%s amount=%d",
		wager.ID, wager.RoundID, wager.AccountID, wager.Outcome, wager.Amount)
	return nil
}
