package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/interview-caller/internal/httpapi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the webhook receiver",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "address to listen on (default 0.0.0.0)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default 5000)")

	viper.BindPFlag("http.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
}

func serve() {
	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}

	api := httpapi.New(a.httpDependencies(), httpapi.Config{
		AllowedIPs:     config.Webhook.AllowedIPs,
		RateLimit:      config.Webhook.RateLimit,
		RateBurst:      config.Webhook.RateBurst,
		TrustedProxies: config.HTTP.TrustedProxies,
		ReleaseMode:    config.HTTP.ReleaseMode,
	}, logger.Named("http"))

	handler, err := api.Handler()
	if err != nil {
		logger.Fatal("building http handler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(config.HTTP.Host, strconv.Itoa(config.HTTP.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownTimeout := config.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting the interview-caller",
			zap.String("version", version),
			zap.String("addr", srv.Addr),
			zap.Bool("calls_enabled", a.provider != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("http server", zap.Error(err))
	}
}
