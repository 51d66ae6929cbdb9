package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"intakegate/internal/api"
	"intakegate/internal/config"
	"intakegate/internal/container"
	"intakegate/ui"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	configFile := flag.String("config", "", "Config file (yaml, toml or json)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile); err != nil {
		log.Fatalf("intake api: %v", err)
	}
}

func run(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	c, err := container.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.Logger

	gin.SetMode(gin.ReleaseMode)
	engine := api.NewRouter(api.NewRunHandler(c.Service, cfg.Server.MaxUploadMB<<20, logger), logger)
	app, err := ui.NewApp(c.Service, engine, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutS) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutS) * time.Second,
	}

	serveErr := make(chan error, 1)
	logger.Info("intake api listening", "addr", server.Addr, "driver", cfg.Database.Driver)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
