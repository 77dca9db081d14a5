package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/api"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/engine"
	engine_v1 "github.com/rxtech-lab/argo-autotrader/internal/engine/engine_v1"
	"github.com/rxtech-lab/argo-autotrader/internal/gateway"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// app is a fully wired engine with its market data source and HTTP API.
type app struct {
	config *config.AppConfig
	log    *logger.Logger
	engine *engine_v1.EngineV1
	source marketdata.Source
	server *api.Server
}

func newApp(cfg *config.AppConfig, log *logger.Logger) (*app, error) {
	gw := gateway.NewGateway(log,
		gateway.WithRetry(cfg.Engine.RetryCount, cfg.Engine.RetryBaseDelay))

	if cfg.Venue != "" {
		venue, err := gateway.NewVenue(cfg.Venue, cfg.VenueConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create venue: %w", err)
		}

		gw.Configure(venue)
	} else {
		log.Warn("No venue configured, orders will be rejected")
	}

	opts := []engine_v1.Option{engine_v1.WithCallbacks(loggingCallbacks(log))}

	var source marketdata.Source

	if cfg.Source != nil {
		var err error

		source, err = marketdata.NewSource(*cfg.Source, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create market data source: %w", err)
		}

		for _, symbol := range cfg.Symbols {
			if err := source.Subscribe(symbol); err != nil {
				return nil, fmt.Errorf("failed to subscribe %s: %w", symbol, err)
			}
		}

		opts = append(opts, engine_v1.WithSource(source))
	}

	eng, err := engine_v1.NewEngineV1(cfg.Engine, gw, log.Named("engine"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	a := &app{
		config: cfg,
		log:    log,
		engine: eng,
		source: source,
		server: api.NewServer(eng, log),
	}

	if err := a.loadStrategies(); err != nil {
		eng.Close()

		return nil, err
	}

	return a, nil
}

func (a *app) loadStrategies() error {
	for _, file := range a.config.Strategies {
		text, err := os.ReadFile(file.Path)
		if err != nil {
			return fmt.Errorf("failed to read strategy %s: %w", file.Path, err)
		}

		id, err := a.engine.AddStrategy(string(text), file.Format)
		if err != nil {
			return fmt.Errorf("failed to load strategy %s: %w", file.Path, err)
		}

		if file.Activate {
			if err := a.engine.ActivateStrategy(id); err != nil {
				return err
			}
		}

		a.log.Info("Strategy loaded",
			zap.String("path", file.Path),
			zap.String("strategy_id", id),
			zap.Bool("active", file.Activate),
		)
	}

	return nil
}

func (a *app) start(ctx context.Context) error {
	if err := a.engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	if err := a.server.Start(a.config.HTTPAddress); err != nil {
		return err
	}

	return nil
}

func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Warn("Failed to shut down HTTP API", zap.Error(err))
	}

	return a.engine.Close()
}

func loggingCallbacks(log *logger.Logger) engine.Callbacks {
	onPlaced := engine.OnOrderPlacedCallback(func(order types.Order) {
		log.Info("Order placed",
			zap.String("strategy_id", order.StrategyID),
			zap.String("order_id", order.ID),
			zap.String("type", string(order.Type)),
			zap.String("symbol", order.Symbol),
			zap.Float64("quantity", order.Quantity),
		)
	})
	onRejected := engine.OnOrderRejectedCallback(func(order types.Order, reason error) {
		log.Warn("Order rejected",
			zap.String("strategy_id", order.StrategyID),
			zap.String("symbol", order.Symbol),
			zap.Error(reason),
		)
	})
	onStatusChanged := engine.OnOrderStatusChangedCallback(func(order types.Order, previous types.OrderStatus) {
		log.Info("Order status changed",
			zap.String("order_id", order.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(order.Status)),
		)
	})
	onStrategyError := engine.OnStrategyErrorCallback(func(strategyID string, data types.MarketData, err error) {
		log.Error("Strategy error",
			zap.String("strategy_id", strategyID),
			zap.String("symbol", data.Symbol),
			zap.Error(err),
		)
	})

	return engine.Callbacks{
		OnOrderPlaced:        &onPlaced,
		OnOrderRejected:      &onRejected,
		OnOrderStatusChanged: &onStatusChanged,
		OnStrategyError:      &onStrategyError,
	}
}
