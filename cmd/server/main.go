package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiosk-backend/internal/config"
	"kiosk-backend/internal/database"
	"kiosk-backend/internal/logging"
	"kiosk-backend/internal/metrics"
	"kiosk-backend/internal/server"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.WithError(err).Fatal("Invalid logging configuration")
	}

	// Prices go out as JSON numbers, which is what the kiosk frontends expect.
	decimal.MarshalJSONWithoutQuotes = true

	db, err := database.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("Database migration failed")
	}

	app := server.New(cfg, db, metrics.NewOrders())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logrus.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Warn("Shutdown did not finish cleanly")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":          cfg.HTTPPort,
		"auth_required": cfg.AuthRequired,
	}).Info("Server listening")

	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}

	if err := database.Close(db); err != nil {
		logrus.WithError(err).Warn("Closing database failed")
	}
}
