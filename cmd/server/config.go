package main

import (
	"fmt"
	"os"
	"time"

	"algohub/internal/common/cache"
	"algohub/internal/common/db"
	"algohub/internal/common/mq"
	"algohub/internal/common/storage"
	"algohub/internal/judge"
	"algohub/internal/submission/service"
	"algohub/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// AuthConfig holds JWT validation settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	JWTIssuer string `yaml:"jwtIssuer"`
}

// SubmissionConfig holds evaluation pipeline settings.
type SubmissionConfig struct {
	SourceBucket    string                  `yaml:"sourceBucket"`
	SourceKeyPrefix string                  `yaml:"sourceKeyPrefix"`
	FinishedTopic   string                  `yaml:"finishedTopic"`
	MaxCodeBytes    int                     `yaml:"maxCodeBytes"`
	InFlightTTL     time.Duration           `yaml:"inFlightTTL"`
	RateLimit       service.RateLimitConfig `yaml:"rateLimit"`
	Timeouts        service.TimeoutConfig   `yaml:"timeouts"`
}

// AppConfig is the full server configuration.
type AppConfig struct {
	Server     ServerConfig        `yaml:"server"`
	Logger     logger.Config       `yaml:"logger"`
	Auth       AuthConfig          `yaml:"auth"`
	Database   db.MySQLConfig      `yaml:"database"`
	Redis      cache.RedisConfig   `yaml:"redis"`
	Kafka      mq.KafkaConfig      `yaml:"kafka"`
	MinIO      storage.MinIOConfig `yaml:"minio"`
	Judge      judge.ClientConfig  `yaml:"judge"`
	Submission SubmissionConfig    `yaml:"submission"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Judge.BaseURL == "" {
		return nil, fmt.Errorf("judge.baseURL is required")
	}
	judgeDefaults := judge.DefaultClientConfig()
	if cfg.Judge.Timeout == 0 {
		cfg.Judge.Timeout = judgeDefaults.Timeout
	}
	if cfg.Judge.PollInterval == 0 {
		cfg.Judge.PollInterval = judgeDefaults.PollInterval
	}
	if cfg.Judge.PollAttempts == 0 {
		cfg.Judge.PollAttempts = judgeDefaults.PollAttempts
	}

	if cfg.Submission.SourceKeyPrefix == "" {
		cfg.Submission.SourceKeyPrefix = "submissions"
	}
	if cfg.Submission.FinishedTopic == "" {
		cfg.Submission.FinishedTopic = "submission.finished"
	}
	if cfg.Submission.MaxCodeBytes == 0 {
		cfg.Submission.MaxCodeBytes = 256 * 1024
	}
	if cfg.Submission.InFlightTTL == 0 {
		cfg.Submission.InFlightTTL = 2 * time.Minute
	}
	if cfg.Submission.RateLimit.UserMax == 0 {
		cfg.Submission.RateLimit.UserMax = 30
	}
	if cfg.Submission.RateLimit.IPMax == 0 {
		cfg.Submission.RateLimit.IPMax = 120
	}
	if cfg.Submission.RateLimit.Window == 0 {
		cfg.Submission.RateLimit.Window = time.Minute
	}
	if cfg.Submission.Timeouts.DB == 0 {
		cfg.Submission.Timeouts.DB = 5 * time.Second
	}
	if cfg.Submission.Timeouts.Cache == 0 {
		cfg.Submission.Timeouts.Cache = 2 * time.Second
	}
	if cfg.Submission.Timeouts.Storage == 0 {
		cfg.Submission.Timeouts.Storage = 10 * time.Second
	}
	if cfg.Submission.Timeouts.MQ == 0 {
		cfg.Submission.Timeouts.MQ = 5 * time.Second
	}
	return &cfg, nil
}
