package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/config"
	"github.com/nmcorpuz/pawnshop-core/internal/notify"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/nmcorpuz/pawnshop-core/internal/services"
	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const sweepInterval = time.Hour

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

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

	smsCfg := &notify.Config{
		Providers: []notify.ProviderConfig{
			{Name: "primary", URL: config.Get().SMSProviderPrimaryUrl, Weight: 100},
			{Name: "secondary", URL: config.Get().SMSProviderSecondaryUrl, Weight: 80},
			{Name: "backup", URL: config.Get().SMSProviderBackupUrl, Weight: 60},
		},
		Timeout:                 time.Second * 5,
		MaxRetries:              3,
		RetryDelay:              time.Millisecond * 100,
		MaxConns:                1000,
		ReadBufferSize:          1024 * 4,
		WriteBufferSize:         1024 * 4,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	}
	smsClient, err := notify.NewClient(smsCfg)
	if err != nil {
		logger.Error("failed to create sms client", "error", err)
		return
	}
	defer smsClient.Close()

	transactionRepo := repository.NewTransactionRepository(db)
	pawnerRepo := repository.NewPawnerRepository(db)

	sweeper := services.NewExpirySweeper(transactionRepo)
	reminders := notify.NewReminderService(transactionRepo, pawnerRepo, smsClient, config.Get().ReminderLeadDays)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	logger.Info("sweeper started", "interval", sweepInterval.String())

	run(sweeper, reminders)
	for {
		select {
		case <-ticker.C:
			run(sweeper, reminders)
		case <-c:
			logger.Info("sweeper stopped")
			return
		}
	}
}

func run(sweeper *services.ExpirySweeper, reminders *notify.ReminderService) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("sweep run failed", "error", err)
		return
	}
	logger.Info("sweep run finished", "matured", res.Matured, "expired", res.Expired)

	sent, err := reminders.SendMaturityReminders(ctx)
	if err != nil {
		logger.Error("maturity reminders failed", "error", err)
	} else if sent > 0 {
		logger.Info("maturity reminders sent", "count", sent)
	}

	sent, err = reminders.SendExpiryReminders(ctx)
	if err != nil {
		logger.Error("expiry reminders failed", "error", err)
	} else if sent > 0 {
		logger.Info("expiry reminders sent", "count", sent)
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
