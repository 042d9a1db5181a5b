package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	accountgrpc "github.com/vibast-solutions/ms-go-account/app/grpc"
	"github.com/vibast-solutions/ms-go-account/app/metrics"
	"github.com/vibast-solutions/ms-go-account/app/server"
	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const healthCheckInterval = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start the HTTP (Echo) account server and the gRPC health server.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open user store")
	}
	defer closeStore()

	svc, err := server.NewServices(cfg, store, server.NewMailSender(cfg.Mail), nil)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build account services")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer, serviceName)

	health := accountgrpc.NewHealthServer(store)
	go health.Watch(ctx, healthCheckInterval)
	go startGRPCServer(ctx, cfg, health)

	startHTTPServer(ctx, cfg, server.NewHTTPHandler(cfg, svc))
}

func startHTTPServer(ctx context.Context, cfg *config.Config, e *echo.Echo) {
	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("Failed to shut down HTTP server")
		}
	}()

	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
	logrus.Info("HTTP server stopped")
}

func startGRPCServer(ctx context.Context, cfg *config.Config, health *accountgrpc.HealthServer) {
	grpcAddr := net.JoinHostPort(cfg.GRPCHost, cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcServer := accountgrpc.NewServer(health)
	go func() {
		<-ctx.Done()
		health.Shutdown()
		grpcServer.GracefulStop()
	}()

	logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
	if err := grpcServer.Serve(lis); err != nil {
		logrus.WithError(err).Fatal("Failed to start gRPC server")
	}
}
