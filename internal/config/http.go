package config

import (
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Port         int
	ServiceName  string
	AuthEnabled  bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func setHTTPDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8082)
	v.SetDefault("service_name", "testhub")
	v.SetDefault("http_auth_enabled", false)
	v.SetDefault("http_read_timeout_sec", 15)
	v.SetDefault("http_write_timeout_sec", 15)
}

func NewHTTPConfig(v *viper.Viper) *HTTPConfig {
	return &HTTPConfig{
		Port:         v.GetInt("http_port"),
		ServiceName:  v.GetString("service_name"),
		AuthEnabled:  v.GetBool("http_auth_enabled"),
		ReadTimeout:  time.Duration(v.GetInt("http_read_timeout_sec")) * time.Second,
		WriteTimeout: time.Duration(v.GetInt("http_write_timeout_sec")) * time.Second,
	}
}
