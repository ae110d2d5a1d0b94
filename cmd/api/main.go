package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/config"
	"github.com/nmcorpuz/pawnshop-core/internal/handlers"
	"github.com/nmcorpuz/pawnshop-core/internal/queue"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/nmcorpuz/pawnshop-core/internal/services"
	xhttp "github.com/nmcorpuz/pawnshop-core/pkg/http"
	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
	"github.com/nmcorpuz/pawnshop-core/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	printQ, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating print queue", "error", err)
	}

	// repositories
	transactionRepo := repository.NewTransactionRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	itemRepo := repository.NewPawnItemRepository(db)
	ticketRepo := repository.NewPawnTicketRepository(db)
	appraisalRepo := repository.NewAppraisalRepository(db)
	pawnerRepo := repository.NewPawnerRepository(db)
	rateRepo := repository.NewRateConfigRepository(db)

	// services
	rates := services.NewRateResolver(rateRepo, services.StandardDefaultRates())
	chain := services.NewChainManager(transactionRepo, sequenceRepo)
	itemStatus := services.NewItemStatusManager(itemRepo)
	lifecycle := services.NewLifecycleService(
		transactionRepo, ticketRepo, itemRepo, appraisalRepo, pawnerRepo,
		rateRepo, rates, chain, itemStatus, printQ,
	)
	sweeper := services.NewExpirySweeper(transactionRepo)
	pawnerService := services.NewPawnerService(pawnerRepo)
	appraisalService := services.NewAppraisalService(appraisalRepo, pawnerRepo)
	healthService := services.NewHealthService(db)

	// v1 handlers
	loanHandler := handlers.NewLoanHandler(lifecycle, sweeper)
	itemHandler := handlers.NewItemHandler(lifecycle, sweeper)
	sweepHandler := handlers.NewSweepHandler(sweeper)
	pawnerHandler := handlers.NewPawnerHandler(pawnerService)
	appraisalHandler := handlers.NewAppraisalHandler(appraisalService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterLoanRoutes(g, loanHandler)
	handlers.RegisterItemRoutes(g, itemHandler)
	handlers.RegisterSweepRoutes(g, sweepHandler)
	handlers.RegisterPawnerRoutes(g, pawnerHandler)
	handlers.RegisterAppraisalRoutes(g, appraisalHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
