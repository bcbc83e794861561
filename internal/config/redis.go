package config

import (
	"time"

	"github.com/spf13/viper"
)

// RedisConfig enables the distributed locker and report events. With
// Enabled false the service uses in-process locks and publishes nothing.
type RedisConfig struct {
	Enabled  bool
	DB       int
	Url      string
	Password string
	Channel  string
	LockTTL  time.Duration
}

func setRedisDefaults(v *viper.Viper) {
	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_channel", "testhub:reports")
	v.SetDefault("redis_lock_ttl_sec", 30)
}

func NewRedisConfig(v *viper.Viper) *RedisConfig {
	return &RedisConfig{
		Enabled:  v.GetBool("redis_enabled"),
		DB:       v.GetInt("redis_db"),
		Url:      v.GetString("redis_url"),
		Password: v.GetString("redis_password"),
		Channel:  v.GetString("redis_channel"),
		LockTTL:  time.Duration(v.GetInt("redis_lock_ttl_sec")) * time.Second,
	}
}
