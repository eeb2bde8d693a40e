package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/cozy-corner/library-lending/internal/clients"
	"github.com/cozy-corner/library-lending/internal/config"
	"github.com/cozy-corner/library-lending/internal/eventstore"
	"github.com/cozy-corner/library-lending/internal/readmodel"
	"github.com/cozy-corner/library-lending/internal/service"
)

func main() {
	log.Println("Starting overdue scheduler...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	store := eventstore.NewPostgresStore(db)
	views := readmodel.NewCachedRepository(
		readmodel.NewPostgresRepository(db),
		redisClient,
		cfg.Redis.CacheTTL,
	)

	catalog := clients.NewCatalogClient(cfg.Clients.CatalogServiceURL, cfg.Clients.Timeout)
	notifier := clients.NewNotificationClient(cfg.Clients.NotificationServiceURL, cfg.Clients.Timeout)

	detector := service.NewOverdueDetector(store, views, catalog, notifier)

	c := cron.New(cron.WithSeconds())
	setupCronJobs(c, cfg, detector)

	c.Start()
	log.Println("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, detector *service.OverdueDetector) {
	_, err := c.AddFunc(cfg.Scheduler.OverdueSweepSpec, func() {
		log.Println("Running overdue detection sweep...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.SweepTimeout)
		defer cancel()

		marked, err := detector.Run(ctx)
		if err != nil {
			log.Printf("Overdue sweep failed: %v", err)
			return
		}
		log.Printf("Overdue sweep finished, %d loans marked overdue", marked)
	})
	if err != nil {
		log.Fatalf("Error scheduling overdue detection job: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}
