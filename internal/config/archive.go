package config

import "github.com/spf13/viper"

// ArchiveConfig points at the S3 bucket terminal reports are copied to.
type ArchiveConfig struct {
	Enabled      bool
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
}

func setArchiveDefaults(v *viper.Viper) {
	v.SetDefault("archive_enabled", false)
	v.SetDefault("archive_bucket", "")
	v.SetDefault("archive_prefix", "reports/")
	v.SetDefault("archive_region", "us-east-1")
	v.SetDefault("archive_endpoint", "")
	v.SetDefault("archive_use_path_style", false)
	v.SetDefault("archive_access_key", "")
	v.SetDefault("archive_secret_key", "")
}

func NewArchiveConfig(v *viper.Viper) *ArchiveConfig {
	return &ArchiveConfig{
		Enabled:      v.GetBool("archive_enabled"),
		Bucket:       v.GetString("archive_bucket"),
		Prefix:       v.GetString("archive_prefix"),
		Region:       v.GetString("archive_region"),
		Endpoint:     v.GetString("archive_endpoint"),
		UsePathStyle: v.GetBool("archive_use_path_style"),
		AccessKey:    v.GetString("archive_access_key"),
		SecretKey:    v.GetString("archive_secret_key"),
	}
}
