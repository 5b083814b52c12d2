package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinetpay-checkout/internal/bridge"
	"cinetpay-checkout/internal/checkout"
	"cinetpay-checkout/internal/cinetpay"
	"cinetpay-checkout/internal/config"
	"cinetpay-checkout/internal/logger"
	"cinetpay-checkout/internal/middleware"
	"cinetpay-checkout/internal/storage"

	"go.uber.org/zap"
)

var (
	openStoreFunc   = storage.Open
	startServerFunc = func(ctx context.Context, srv *http.Server) error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogFile)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closer, err := openStoreFunc(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	app, err := newServer(cfg, store)
	if err != nil {
		return err
	}
	go app.limiter.Run(ctx)
	go app.sessions.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.L().Info("Bridge server running",
		zap.String("addr", srv.Addr),
		zap.String("store", cfg.StoreDriver),
	)

	if err := startServerFunc(ctx, srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// server is the wired bridge plus the state swept in the background.
type server struct {
	handler  http.Handler
	limiter  *middleware.RateLimiter
	sessions *checkout.Sessions
}

// newServer wires the payment client, the checkout sessions and the
// middleware chain around them.
func newServer(cfg *config.Config, store storage.Store) (*server, error) {
	opts := []cinetpay.Option{cinetpay.WithTimeout(cfg.GatewayTimeout)}
	if cfg.CinetPayBaseURL != "" {
		opts = append(opts, cinetpay.WithBaseURL(cfg.CinetPayBaseURL))
	}

	client, err := cinetpay.NewClient(cinetpay.MerchantOptions{
		APIKey:    cfg.CinetPayAPIKey,
		SiteID:    cfg.CinetPaySiteID,
		NotifyURL: cfg.CinetPayNotifyURL,
		ReturnURL: cfg.CinetPayReturnURL,
		Lang:      cinetpay.Lang(cfg.CinetPayLang),
	}, store, opts...)
	if err != nil {
		return nil, err
	}

	merchant := client.Merchant()
	logger.L().Info("CinetPay client ready",
		zap.Int64("site_id", merchant.SiteID()),
		zap.String("lang", string(merchant.Lang())),
	)

	sessions := checkout.NewSessions(client.Storage())
	h := bridge.NewHandler(client, sessions, cfg.CinetPayReturnURL)

	limiter := middleware.NewRateLimiter()
	return &server{
		handler:  setupRouter(h, limiter, cfg.JWTSecret),
		limiter:  limiter,
		sessions: sessions,
	}, nil
}

func setupRouter(h *bridge.Handler, limiter *middleware.RateLimiter, jwtSecret string) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)

	// health stays reachable without a token
	protected := limiter.Middleware(middleware.NewAuthMiddleware(jwtSecret)(mux))
	root := http.NewServeMux()
	root.Handle("GET /health", mux)
	root.Handle("/", protected)

	return logger.RequestIDMiddleware(logger.LoggingMiddleware(root))
}
