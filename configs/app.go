package configs

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/n0rdy/leadflow/common"
)

const (
	// SQS rejects a DelaySeconds above 900
	maxRetryDelay = 15 * time.Minute
)

var (
	ErrMissingQueueURL       = errors.New("LEAD_NEW_QUEUE_URL is not set")
	ErrUnsupportedEnv        = errors.New("unsupported LEADFLOW_ENV")
	ErrUnsupportedTransport  = errors.New("unsupported LEADFLOW_TRANSPORT")
	ErrInvalidPollInterval   = errors.New("LEADFLOW_POLL_INTERVAL must be positive")
	ErrInvalidRetryDelay     = errors.New("LEADFLOW_RETRY_DELAY must be between 0s and 15m")
	ErrInvalidHandlerLatency = errors.New("LEADFLOW_HANDLER_LATENCY must not be negative")
)

// EnvConfig is the raw environment surface. Everything not listed here is a compiled-in default in AppConfigs.
type EnvConfig struct {
	Env               string        `env:"LEADFLOW_ENV" envDefault:"local"`
	LogLevel          string        `env:"LEADFLOW_LOG_LEVEL" envDefault:"info"`
	QueueURL          string        `env:"LEAD_NEW_QUEUE_URL"`
	DlqURL            string        `env:"LEAD_NEW_DLQ_URL"`
	AWSRegion         string        `env:"AWS_REGION" envDefault:"us-east-1"`
	SQSEndpoint       string        `env:"LEADFLOW_SQS_ENDPOINT"`
	Transport         string        `env:"LEADFLOW_TRANSPORT" envDefault:"sqs"`
	LocalDBPath       string        `env:"LEADFLOW_LOCAL_DB_PATH"`
	APIAddr           string        `env:"LEADFLOW_API_ADDR" envDefault:"localhost:8080"`
	APIKey            string        `env:"LEADFLOW_API_KEY"`
	MetricsEnabled    bool          `env:"LEADFLOW_METRICS_ENABLED" envDefault:"false"`
	RedisAddr         string        `env:"LEADFLOW_REDIS_ADDR"`
	RedisPassword     string        `env:"LEADFLOW_REDIS_PASSWORD"`
	PollInterval      time.Duration `env:"LEADFLOW_POLL_INTERVAL" envDefault:"20s"`
	RetryDelay        time.Duration `env:"LEADFLOW_RETRY_DELAY" envDefault:"5s"`
	HandlerLatency    time.Duration `env:"LEADFLOW_HANDLER_LATENCY" envDefault:"1s"`
	MaxCallsPerSecond float64       `env:"LEADFLOW_MAX_CALLS_PER_SECOND" envDefault:"0"`
}

type AppConfigs struct {
	Env            string
	LogLevel       string
	Transport      string
	QueueURL       string
	DlqURL         string // empty means exhausted messages are logged as lost and dropped
	LocalDBPath    string // only used by the local transport; resolved to the OS data dir if empty
	MetricsEnabled bool
	AWS            AWSConfig
	Redis          RedisConfig
	API            APIConfig
	Worker         WorkerConfig
	Usage          UsageConfig
	JobsIntervals  JobsIntervals
	ServerConfig   ServerConfig
}

type AWSConfig struct {
	Region   string
	Endpoint string // overrides the SQS endpoint, e.g. for LocalStack
}

type RedisConfig struct {
	Addr     string // empty disables lead deduplication
	Password string
	ClaimTtl time.Duration
}

type APIConfig struct {
	Addr   string
	APIKey string
}

type WorkerConfig struct {
	BatchSize              int
	WaitTime               time.Duration // long polling wait per receive call
	VisibilityTimeout      time.Duration
	PollInterval           time.Duration // sleep between polls, the main lever on API call volume
	ErrorBackoffMultiplier int           // applied to PollInterval after a failed receive, fixed
	MaxRetries             int
	RetryDelay             time.Duration // delay of a re-published message, same for every attempt
	HandlerLatency         time.Duration
	StaleHeartbeatAfter    time.Duration
}

type UsageConfig struct {
	ReportEveryCalls  int64
	MonthlyQuota      int64
	MaxCallsPerSecond float64 // 0 disables throttling
}

type JobsIntervals struct {
	QueuesDepthMetricsMs               int64 // Interval for refreshing queue depth gauges
	ExpiredDlqMessagesCleanupMs        int64 // Interval for purging old messages from the local DLQ
	LocalStoreMaintenanceMs            int64 // Interval for WAL checkpoint and PRAGMA optimize on the local store
	LocalStoreMaintenanceMaxDurationMs int64
	LocalDlqRetentionMs                int64
}

type ServerConfig struct {
	Timeouts ServerTimeouts
}

type ServerTimeouts struct {
	Handle     time.Duration
	Write      time.Duration
	Read       time.Duration
	ReadHeader time.Duration
	Idle       time.Duration
}

// NewAppConfig reads the process environment.
func NewAppConfig() (*AppConfigs, error) {
	var envConfig EnvConfig
	if err := env.Parse(&envConfig); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return fromEnvConfig(envConfig)
}

// NewAppConfigFromMap is NewAppConfig over an explicit environment, used by tests and tooling.
func NewAppConfigFromMap(environment map[string]string) (*AppConfigs, error) {
	var envConfig EnvConfig
	if err := env.ParseWithOptions(&envConfig, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return fromEnvConfig(envConfig)
}

func fromEnvConfig(ec EnvConfig) (*AppConfigs, error) {
	if ec.QueueURL == "" {
		return nil, ErrMissingQueueURL
	}
	if !common.SupportedEnvs[ec.Env] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEnv, ec.Env)
	}
	if !common.SupportedTransports[ec.Transport] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, ec.Transport)
	}
	// a zero poll interval also zeroes the error backoff and turns a failing receive into a hot loop
	if ec.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPollInterval, ec.PollInterval)
	}
	// a delay the queue refuses would leave every failed message unrouted, never reaching the DLQ
	if ec.RetryDelay < 0 || ec.RetryDelay > maxRetryDelay {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRetryDelay, ec.RetryDelay)
	}
	if ec.HandlerLatency < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHandlerLatency, ec.HandlerLatency)
	}

	waitTime := 20 * time.Second

	return &AppConfigs{
		Env:            ec.Env,
		LogLevel:       ec.LogLevel,
		Transport:      ec.Transport,
		QueueURL:       ec.QueueURL,
		DlqURL:         ec.DlqURL,
		LocalDBPath:    ec.LocalDBPath,
		MetricsEnabled: ec.MetricsEnabled,
		AWS: AWSConfig{
			Region:   ec.AWSRegion,
			Endpoint: ec.SQSEndpoint,
		},
		Redis: RedisConfig{
			Addr:     ec.RedisAddr,
			Password: ec.RedisPassword,
			ClaimTtl: 24 * time.Hour,
		},
		API: APIConfig{
			Addr:   ec.APIAddr,
			APIKey: ec.APIKey,
		},
		Worker: WorkerConfig{
			BatchSize:              10,
			WaitTime:               waitTime,
			VisibilityTimeout:      30 * time.Second,
			PollInterval:           ec.PollInterval,
			ErrorBackoffMultiplier: 2,
			MaxRetries:             3,
			RetryDelay:             ec.RetryDelay,
			HandlerLatency:         ec.HandlerLatency,
			StaleHeartbeatAfter:    3 * (waitTime + 2*ec.PollInterval),
		},
		Usage: UsageConfig{
			ReportEveryCalls:  100,
			MonthlyQuota:      1_000_000, // SQS free tier
			MaxCallsPerSecond: ec.MaxCallsPerSecond,
		},
		JobsIntervals: JobsIntervals{
			QueuesDepthMetricsMs:               5 * 60 * 1000,            // 5 minutes, every refresh is a billable SQS call per queue
			ExpiredDlqMessagesCleanupMs:        60 * 60 * 1000,           // 1 hour
			LocalStoreMaintenanceMs:            6 * 60 * 60 * 1000,       // 6 hours
			LocalStoreMaintenanceMaxDurationMs: 30 * 1000,                // 30 seconds
			LocalDlqRetentionMs:                14 * 24 * 60 * 60 * 1000, // 14 days, SQS maximum retention
		},
		ServerConfig: ServerConfig{
			Timeouts: ServerTimeouts{
				Handle:     10 * time.Second,
				Write:      15 * time.Second,
				Read:       15 * time.Second,
				ReadHeader: 5 * time.Second,
				Idle:       2 * time.Minute,
			},
		},
	}, nil
}

// ErrorBackoff is the fixed sleep after a failed receive.
func (wc WorkerConfig) ErrorBackoff() time.Duration {
	return wc.PollInterval * time.Duration(wc.ErrorBackoffMultiplier)
}
