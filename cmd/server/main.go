package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-fulfillment/internal/config"
	"order-fulfillment/internal/controllers/http"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/infra/database"
	"order-fulfillment/internal/infra/payment"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/repository"
	"order-fulfillment/internal/repository/memory"
	"order-fulfillment/internal/repository/sqlstore"
	"order-fulfillment/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	var repo *repository.Repository
	if cfg.DB.Driver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		repo = memory.NewStore().Repository()
	} else {
		db, err := database.Connect(cfg.DB, log)
		if err != nil {
			log.Fatal("db: connect", zap.Error(err))
		}
		defer database.Close(db, log)
		repo = sqlstore.New(db, cfg.DB.LockTimeout)
	}

	var processed payment.ProcessedStore = payment.NewMemoryProcessedStore()
	var rdb *redisClients
	if cfg.Redis.Enabled {
		rdb = connectRedis(cfg.Redis, log)
		defer rdb.Close()
		processed = payment.NewRedisProcessedStore(rdb.payments, cfg.Payment.ProcessedTTL)
	}

	notifier, closeNotifier := buildNotifier(cfg.Notifier, log)
	defer closeNotifier()

	gateways := map[domain.PaymentMethod]services.PaymentGateway{}
	for _, g := range cfg.Gateways {
		method := domain.PaymentMethod(g.Method)
		gateways[method] = payment.NewHMACGateway(payment.GatewayConfig{
			Method:       method,
			MerchantCode: g.MerchantCode,
			Secret:       g.Secret,
			PaymentURL:   g.PaymentURL,
			StatusURL:    g.StatusURL,
			SuccessURL:   g.SuccessURL,
			FailureURL:   g.FailureURL,
			Timeout:      cfg.Payment.Timeout,
			MaxRetries:   cfg.Payment.MaxRetries,
		}, processed, log)
		log.Info("payment gateway enabled", zap.String("method", g.Method))
	}

	pricing := services.NewCalculator(
		services.ShippingRates{Local: cfg.Shipping.LocalFee, Remote: cfg.Shipping.RemoteFee},
		services.NewMetroTable(cfg.Shipping.MetroGroups),
		log,
	)

	s := services.NewOrderService(repo, pricing, gateways, notifier, services.Config{
		Reservation:    services.ReservationPolicy(cfg.Stock.Reservation),
		ReservationTTL: cfg.Stock.ReservationTTL,
		LockRetries:    cfg.Stock.LockRetries,
		GatewayTimeout: cfg.Payment.Timeout,
	}, log)
	if rdb != nil {
		s.SetRedisClient(rdb.orders)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if services.ReservationPolicy(cfg.Stock.Reservation) == services.ReservationSoft {
		go runExpirySweep(ctx, s, cfg.Stock.SweepInterval, log)
	}

	handler := http.NewHandler(s, log)

	if isDev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	handler.RegisterRoutes(r)

	srv := &nethttp.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("starting order service", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatal("server run", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
}

func runExpirySweep(ctx context.Context, s *services.OrderService, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireStaleReservations(ctx)
			if err != nil {
				log.Error("reservation sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("expired stale reservations", zap.Int("count", n))
			}
		}
	}
}
