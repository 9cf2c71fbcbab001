package cmd

import (
	"context"
	"errors"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"snaptrade/internal/delivery/http"
	"snaptrade/internal/delivery/telegram"
	"snaptrade/internal/repository"
	"snaptrade/internal/service"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the snaptrade HTTP API (and the Telegram bot when configured)",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer appDep.Close()

	repo, err := repository.NewRepository(ctx, appDep.cfg, appDep.log)
	if err != nil {
		appDep.log.Fatal("Failed to create repository", zap.Error(err))
	}

	services := service.NewService(appDep.cfg, appDep.log, repo, appDep.validator)

	g, gCtx := errgroup.WithContext(ctx)

	httpHandler := http.NewHttpAPIHandler(gCtx, appDep.echo, appDep.cfg, appDep.log, services, appDep.limiter)
	apiServer := NewHTTPServer(gCtx, appDep, httpHandler)
	apiServer.SetupRoutes()

	var telegramHandler *telegram.TelegramBotHandler
	if appDep.telegramBot != nil {
		telegramHandler = telegram.NewTelegramBotHandler(
			gCtx,
			appDep.cfg,
			appDep.log,
			appDep.telegramBot,
			appDep.telegram,
			appDep.echo,
			services,
			appDep.cache,
		)
		telegramHandler.RegisterWebhookRoute()
	}

	g.Go(func() error {
		if err := apiServer.Start(); err != nil && !errors.Is(err, httpNet.ErrServerClosed) {
			return err
		}
		return nil
	})

	if telegramHandler != nil {
		g.Go(telegramHandler.Start)
	}

	g.Go(func() error {
		// Wait for shutdown signal or a failed component
		<-gCtx.Done()
		appDep.log.Info("Shutting down gracefully...")

		if telegramHandler != nil {
			telegramHandler.Stop()
		}
		return apiServer.Stop()
	})

	if err := g.Wait(); err != nil {
		appDep.log.Error("Server stopped with error", zap.Error(err))
	}
}
