package config

import "github.com/spf13/viper"

type JwtConfig struct {
	Secret string
	Issuer string
}

func setJwtDefaults(v *viper.Viper) {
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "")
}

func NewJwtConfig(v *viper.Viper) *JwtConfig {
	return &JwtConfig{
		Secret: v.GetString("jwt_secret"),
		Issuer: v.GetString("jwt_issuer"),
	}
}
