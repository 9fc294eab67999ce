package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-gateway-go/config"
	"order-gateway-go/gateway"
	"order-gateway-go/infrastructure/alert"
	"order-gateway-go/infrastructure/logger"
	"order-gateway-go/metrics"
	"order-gateway-go/order"
	"order-gateway-go/venue"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file path")
	paper := flag.Bool("paper", false, "use the in-memory paper venue instead of REST")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Close()

	if cfg.Metrics.Addr != "" {
		metrics.StartMetricsServer(cfg.Metrics.Addr)
	}

	var venueClient venue.Client
	var limiter *gateway.TokenBucketLimiter
	if *paper {
		p := venue.NewPaper()
		p.SetAccount(venue.Account{
			Equity:         decimal.NewFromInt(100000),
			Cash:           decimal.NewFromInt(100000),
			PortfolioValue: decimal.NewFromInt(100000),
			BuyingPower:    decimal.NewFromInt(200000),
		})
		venueClient = p
		lg.Info("using paper venue")
	} else {
		if err := config.ValidateVenue(cfg); err != nil {
			log.Fatalf("venue config: %v", err)
		}
		limiter = gateway.NewTokenBucketLimiter(cfg.Limiter.Rate, cfg.Limiter.Burst)
		venueClient = &gateway.RESTClient{
			BaseURL:    cfg.Venue.BaseURL,
			APIKey:     cfg.Venue.APIKey,
			Secret:     cfg.Venue.APISecret,
			HTTPClient: gateway.NewDefaultHTTPClient(),
			Limiter:    limiter,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := order.NewStore()
	router := order.NewRouter(venueClient, store, lg)

	reconciler := order.NewReconciler(venueClient, router, order.ReconcilerConfig{
		Interval:    time.Duration(cfg.Reconcile.IntervalSeconds) * time.Second,
		CallTimeout: time.Duration(cfg.Reconcile.CallTimeoutSeconds) * time.Second,
		MaxBackoff:  time.Duration(cfg.Reconcile.MaxBackoffSeconds) * time.Second,
	}, lg)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	if cfg.Venue.StreamURL != "" && !*paper {
		streamLog := lg.WithFields(map[string]interface{}{"component": "execution_stream"})
		stream := gateway.NewExecutionStream(cfg.Venue.StreamURL, cfg.Venue.APIKey, streamLog.Logger)
		go stream.Run(ctx, router)
	}

	alerts := alert.NewManager([]alert.Channel{
		alert.NewZapChannel("log", lg.Logger),
	}, 5*time.Minute)
	go watchReconcileStaleness(ctx, reconciler, alerts, lg.Logger)

	// Hot-reload: only the reconcile interval and limiter rate are safe to
	// change at runtime.
	watcher := config.Watcher{Path: *cfgPath}
	go func() {
		err := watcher.Start(ctx, func(newCfg config.AppConfig) {
			if newCfg.Reconcile.IntervalSeconds > 0 {
				reconciler.UpdateInterval(time.Duration(newCfg.Reconcile.IntervalSeconds) * time.Second)
				lg.Info("reconcile interval updated",
					zap.Int("seconds", newCfg.Reconcile.IntervalSeconds))
			}
			if limiter != nil && newCfg.Limiter.Rate > 0 {
				limiter.SetRate(newCfg.Limiter.Rate)
				lg.Info("limiter rate updated", zap.Float64("rate", newCfg.Limiter.Rate))
			}
		})
		if err != nil && ctx.Err() == nil {
			lg.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	lg.Info("order gateway running", zap.String("env", cfg.Env))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	lg.Info("shutting down")
}

// watchReconcileStaleness raises an alert when reconciliation has not
// completed a pass for three intervals.
func watchReconcileStaleness(ctx context.Context, rc *order.Reconciler, alerts *alert.Manager, lg *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := rc.Stats()
			if stats.LastRun.IsZero() {
				continue
			}
			stale := 3 * rc.Interval()
			if time.Since(stats.LastRun) > stale {
				_ = alerts.SendError("reconciliation is stale", map[string]interface{}{
					"last_run":  stats.LastRun,
					"threshold": stale.String(),
				})
			}
		}
	}
}
