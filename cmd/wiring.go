package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/okian/ourabridge/internal/adapters/mqtt"
	"github.com/okian/ourabridge/internal/adapters/oura"
	"github.com/okian/ourabridge/internal/adapters/repository"
	service "github.com/okian/ourabridge/internal/app"
	"github.com/okian/ourabridge/internal/config"
	"github.com/okian/ourabridge/pkg/logger"
)

// bootstrap initializes logging and loads configuration.
func bootstrap(ctx context.Context) (*config.Config, logger.Logger, error) {
	if err := logger.Init(); err != nil {
		return nil, nil, fmt.Errorf("initialize logging: %w", err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(os.Stderr)); err != nil {
		return nil, nil, fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, logger.Get(), nil
}

// components is everything a command needs to run cycles.
type components struct {
	svc     *service.Service
	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// build wires the Oura client, the configured publishers and the service.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*components, error) {
	c := &components{}

	client := oura.New(cfg.APIHost, cfg.Token,
		oura.WithTimeout(cfg.RequestTimeout),
		oura.WithRetries(cfg.RequestRetries),
		oura.WithLogger(log),
	)

	var pubs []service.Publisher

	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			c.Close()
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		pubs = append(pubs, repository.NewRedisStore(rdb,
			repository.WithKeyPrefix(cfg.RedisKeyPrefix),
			repository.WithTTL(cfg.RedisTTL),
			repository.WithLogger(log),
		))
		log.Info(ctx, "redis store enabled", logger.String("addr", cfg.RedisAddr))
	}

	if cfg.MQTTEnabled() {
		mc, err := mqtt.Connect(ctx, mqtt.ClientConfig{
			Broker:    cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			WillTopic: cfg.MQTTTopicPrefix + "/status",
		}, log)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, func() { mqtt.Close(mc) })
		pubs = append(pubs, mqtt.NewPublisher(mc,
			mqtt.WithTopicPrefix(cfg.MQTTTopicPrefix),
			mqtt.WithDiscoveryPrefix(cfg.MQTTDiscoveryPrefix),
			mqtt.WithDeviceName(cfg.DeviceName),
			mqtt.WithRetain(cfg.MQTTRetain),
			mqtt.WithLogger(log),
		))
		log.Info(ctx, "mqtt publisher enabled", logger.String("broker", cfg.MQTTBroker))
	}

	c.svc = service.New(client,
		service.WithInterval(cfg.PollInterval),
		service.WithCycleTimeout(cfg.CycleTimeout),
		service.WithPartialCycles(cfg.PartialCycles),
		service.WithRingFetch(cfg.RingFetch),
		service.WithRingConfiguration(cfg.Ring()),
		service.WithFetchConcurrency(cfg.FetchConcurrency),
		service.WithPublishers(pubs...),
		service.WithLogger(log),
	)
	return c, nil
}
