package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Telegram TelegramConfig
	Drand    DrandConfig
	Lottery  LotteryConfig
	Admin    AdminConfig
	LogLevel string
}

// ServerConfig holds admin API server configuration
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds admin API token configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// TelegramConfig holds the bot transport configuration
type TelegramConfig struct {
	Token         string
	UpdateTimeout int
	WorkerCount   int
}

// DrandConfig holds the randomness beacon configuration
type DrandConfig struct {
	URL string
}

// LotteryConfig holds lottery subsystem configuration
type LotteryConfig struct {
	// Timezone interprets bare end-time input from creators
	Timezone string
}

// AdminConfig holds the single operator account for the admin API
type AdminConfig struct {
	PasswordHash string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, environment variables take over
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Location resolves the configured lottery timezone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Lottery.Timezone)
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "lotterybot")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("Telegram.UpdateTimeout", 60)
	viper.SetDefault("Telegram.WorkerCount", 10)
	viper.SetDefault("Drand.URL", "https://drand.cloudflare.com/public/latest")
	viper.SetDefault("Lottery.Timezone", "Asia/Shanghai")
	viper.SetDefault("LogLevel", "info")
}
