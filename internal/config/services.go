package config

import (
	"time"

	"github.com/spf13/viper"
)

type ExecutionConfig struct {
	Workers           int
	QueueSize         int
	RequestTimeout    time.Duration
	StatsInterval     time.Duration
	BatchDeleteStrict bool
	// RecoverAbandoned fails unfinished reports on startup. Turn it off when
	// several instances share one database.
	RecoverAbandoned bool
	// Variables seed every run; base_url is what "{{base_url}}/path" urls resolve against.
	Variables map[string]string
}

func setExecutionDefaults(v *viper.Viper) {
	v.SetDefault("execution_workers", 4)
	v.SetDefault("execution_queue_size", 64)
	v.SetDefault("execution_request_timeout_sec", 10)
	v.SetDefault("execution_stats_interval_sec", 60)
	v.SetDefault("batch_delete_strict", false)
	v.SetDefault("execution_recover_abandoned", true)
	v.SetDefault("execution_base_url", "")
	v.SetDefault("execution_variables", "")
}

func NewExecutionConfig(v *viper.Viper) *ExecutionConfig {
	workers := v.GetInt("execution_workers")
	if workers <= 0 {
		workers = 1
	}
	queueSize := v.GetInt("execution_queue_size")
	if queueSize <= 0 {
		queueSize = 1
	}

	variables := parsePairs(v.GetString("execution_variables"))
	if baseURL := v.GetString("execution_base_url"); baseURL != "" {
		variables["base_url"] = baseURL
	}

	return &ExecutionConfig{
		Workers:           workers,
		QueueSize:         queueSize,
		RequestTimeout:    time.Duration(v.GetInt("execution_request_timeout_sec")) * time.Second,
		StatsInterval:     time.Duration(v.GetInt("execution_stats_interval_sec")) * time.Second,
		BatchDeleteStrict: v.GetBool("batch_delete_strict"),
		RecoverAbandoned:  v.GetBool("execution_recover_abandoned"),
		Variables:         variables,
	}
}
