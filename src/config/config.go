package config

import (
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Service         ServiceConfig        `mapstructure:"service"`
	Databases       DatabasesConfig      `mapstructure:"databases"`
	ExternalClients ExternalClientConfig `mapstructure:"externalClients"`
	AWS             AWSConfig            `mapstructure:"aws"`
}

type ServiceType string

const (
	API    ServiceType = "API"
	WORKER ServiceType = "WORKER"
)

type ServiceConfig struct {
	Type ServiceType `mapstructure:"type"`
	Port string      `mapstructure:"port"`
	// RefreshCron drives the WORKER connection sweep, cron syntax.
	RefreshCron string `mapstructure:"refreshCron"`
}

type DatabasesConfig struct {
	SQL   SQLConfig   `mapstructure:"sql"`
	Redis RedisConfig `mapstructure:"redis"`
}

type SQLConfig struct {
	Host             string `mapstructure:"host"`
	Port             string `mapstructure:"port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Driver           string `mapstructure:"driver"`
	Database         string `mapstructure:"database"`
	ConnectionString string `mapstructure:"connection_string"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

type ExternalClientConfig struct {
	SnapTrade SnapTradeConfig `mapstructure:"snaptrade"`
}

type SnapTradeConfig struct {
	BaseURL string `mapstructure:"baseUrl"`
	// ClientID and ConsumerKey gate broker client initialization.
	// Empty values leave the client in a fail-fast "not initialized" state.
	ClientID    string `mapstructure:"clientId"`
	ConsumerKey string `mapstructure:"consumerKey"`
	// SecretID names an AWS Secrets Manager entry holding the credential
	// pair as JSON, used only when both env variables above are unset.
	SecretID string `mapstructure:"secretId"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

func LoadConfig(path string) (*Config, error) {
	var cfg Config

	viper.AddConfigPath(path)
	configName := "appsettings"
	if env := os.Getenv("ENV"); env != "" {
		configName = configName + "." + env
	}
	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")

	_ = viper.BindEnv("externalClients.snaptrade.clientId", "SNAPTRADE_CLIENT_ID")
	_ = viper.BindEnv("externalClients.snaptrade.consumerKey", "SNAPTRADE_CONSUMER_KEY")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
