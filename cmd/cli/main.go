package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/nmcorpuz/pawnshop-core/internal/config"
	"github.com/nmcorpuz/pawnshop-core/internal/repository"
	"github.com/nmcorpuz/pawnshop-core/internal/services"
	"github.com/nmcorpuz/pawnshop-core/pkg/logger"
	"github.com/nmcorpuz/pawnshop-core/pkg/pg"
)

func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
	}

	// main.go sweep | main.go --dir=./migrations
	for _, v := range os.Args[1:] {
		if v == "sweep" {
			runSweep()
			return
		}
	}

	pgConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}
	err = pg.Migrate(pgConf, getMigrationPath())
	if err != nil {
		logger.Error("migration: error running migrations", "error", err)
	}
}

func runSweep() {
	pgConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}
	db, err := pg.CreateReadWrite(pgConf, pgConf, false)
	if err != nil {
		logger.Error("sweep: failed connecting to pg", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sweeper := services.NewExpirySweeper(repository.NewTransactionRepository(db))
	res, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("sweep: run failed", "error", err)
		return
	}
	logger.Info("sweep: finished", "matured", res.Matured, "expired", res.Expired)
}

func getEnvPath() string {
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
	if _, err := os.Open(".env"); err != nil {
		logger.Error("failed to open the passed env file, got error" + err.Error())
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--dir=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	if _, err := os.Open("./migrations"); err != nil {
		logger.Error("failed to open the passed env file, got error" + err.Error())
		return ""
	}
	return "./migrations"
}
