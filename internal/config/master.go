package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Environment     string
	DebugMode       bool
	HTTPConfig      *HTTPConfig
	DatabaseConfig  *DatabaseConfig
	RedisConfig     *RedisConfig
	ExecutionConfig *ExecutionConfig
	ArchiveConfig   *ArchiveConfig
	JwtConfig       *JwtConfig
}

// LoadEnvFile loads <environment>.env into the process environment. A
// missing file is not an error; the variables may come from elsewhere.
func LoadEnvFile(environment string) error {
	if environment == "" {
		return nil
	}
	err := godotenv.Load(environment + ".env")
	if err != nil && !isNotExist(err) {
		return fmt.Errorf("failed to load %s.env: %w", environment, err)
	}
	return nil
}

// NewViper returns a viper instance reading the process environment, with
// every default registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("debug_mode", false)
	setHTTPDefaults(v)
	setDatabaseDefaults(v)
	setRedisDefaults(v)
	setExecutionDefaults(v)
	setArchiveDefaults(v)
	setJwtDefaults(v)
	return v
}

func NewSystemConfig(environment string) *AppConfig {
	return NewSystemConfigFrom(environment, NewViper())
}

func NewSystemConfigFrom(environment string, v *viper.Viper) *AppConfig {
	return &AppConfig{
		Environment:     environment,
		DebugMode:       v.GetBool("debug_mode"),
		HTTPConfig:      NewHTTPConfig(v),
		DatabaseConfig:  NewDatabaseConfig(v),
		RedisConfig:     NewRedisConfig(v),
		ExecutionConfig: NewExecutionConfig(v),
		ArchiveConfig:   NewArchiveConfig(v),
		JwtConfig:       NewJwtConfig(v),
	}
}
