package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/savingsgroup/internal/auth"
	"github.com/mmynk/savingsgroup/internal/config"
	"github.com/mmynk/savingsgroup/internal/events"
	"github.com/mmynk/savingsgroup/internal/meeting"
	"github.com/mmynk/savingsgroup/internal/metrics"
	"github.com/mmynk/savingsgroup/internal/middleware"
	"github.com/mmynk/savingsgroup/internal/rest"
	"github.com/mmynk/savingsgroup/internal/service"
	"github.com/mmynk/savingsgroup/internal/storage/sqlite"
	"github.com/mmynk/savingsgroup/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		slog.Info("Publishing events over AMQP", "exchange", cfg.AMQPExchange)
	}

	m := metrics.New(prometheus.NewRegistry())
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	svc := meeting.New(meeting.Deps{
		Store:   store,
		Events:  publisher,
		Metrics: m,
		Options: meeting.Options{
			DefaultQuorumPercent: cfg.DefaultQuorumPercent,
			RemotePreMeeting:     cfg.RemotePreMeeting,
		},
	})

	mux := http.NewServeMux()

	// Register Connect services
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(m),
	)
	mux.Handle(service.NewMeetingServiceHandler(service.NewMeetingService(svc), interceptors))
	mux.Handle(service.NewLedgerServiceHandler(service.NewLedgerService(svc), interceptors))
	mux.Handle(service.NewRemotePaymentServiceHandler(service.NewRemotePaymentService(svc), interceptors))
	mux.Handle(service.NewDirectoryServiceHandler(service.NewDirectoryService(store), interceptors))

	mux.Handle("/metrics", m.Handler())
	router := rest.NewRouter(svc, jwtManager, m, store)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Unknown RPC services must not fall through to the REST routes
		if service.IsProcedure(r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		router.ServeHTTP(w, r)
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		// h2c serves HTTP/2 without TLS for Connect clients
		Handler:           h2c.NewHandler(corsMiddleware(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
