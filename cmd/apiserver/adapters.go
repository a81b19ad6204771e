package main

import (
	"time"

	"github.com/saludplena/claims-engine/internal/config"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/postgres"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/redis"
	"github.com/saludplena/claims-engine/internal/infrastructure/messaging/kafka"
)

// Bridges between the flat application config and the per-package
// infrastructure configs, which carry their own field names and defaults.

func postgresConfig(cfg config.DatabaseConfig) postgres.Config {
	return postgres.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Database:        cfg.DBName,
		Username:        cfg.User,
		Password:        cfg.Password,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

func redisConfig(cfg config.RedisConfig) *redis.Config {
	return &redis.Config{
		Mode:         "standalone",
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func kafkaConfig(cfg config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      cfg.Brokers,
		MaxRetries:   cfg.ProducerRetries,
		BatchSize:    cfg.BatchSize,
		WriteTimeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
	}
}
