package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/xueqianLu/ethvault/internal/keystore"
)

var log = logrus.WithField("prefix", "config")

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	KeyManager KeyManagerConfig `mapstructure:"key_manager"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port    string `mapstructure:"port"`
	Address string `mapstructure:"address"`
}

// AuthConfig holds the HMAC request authentication credentials.
type AuthConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// KeyManagerConfig selects and configures the key storage backend.
type KeyManagerConfig struct {
	Type  string      `mapstructure:"type"` // "local" or "vault"
	Local LocalConfig `mapstructure:"local"`
	Vault VaultConfig `mapstructure:"vault"`
}

// LocalConfig configures the local encrypted keystore backend.
type LocalConfig struct {
	KeystoreDir string `mapstructure:"keystore_dir"`
	// ScryptPreset selects the keyfile encryption cost: "standard",
	// "light", or "custom" with explicit scrypt_n/scrypt_p.
	ScryptPreset string `mapstructure:"scrypt_preset"`
	ScryptN      int    `mapstructure:"scrypt_n"`
	ScryptP      int    `mapstructure:"scrypt_p"`
	// DefaultUnlockTimeout bounds unlock requests that do not specify a
	// duration. Zero means such unlocks are indefinite.
	DefaultUnlockTimeout time.Duration `mapstructure:"default_unlock_timeout"`
}

// VaultConfig configures the Vault transit backend.
type VaultConfig struct {
	Address     string `mapstructure:"address"`
	Token       string `mapstructure:"token"`
	TransitPath string `mapstructure:"transit_path"`
}

// ScryptCost resolves the configured preset to concrete cost parameters.
// The preset is always explicit; there is no silent downgrade.
func (c LocalConfig) ScryptCost() (keystore.ScryptCost, error) {
	switch c.ScryptPreset {
	case "", "standard":
		return keystore.StandardScrypt, nil
	case "light":
		return keystore.LightScrypt, nil
	case "custom":
		return keystore.CustomScrypt(c.ScryptN, c.ScryptP), nil
	}
	return keystore.ScryptCost{}, errors.Errorf("unknown scrypt preset %q", c.ScryptPreset)
}

// LoadConfig reads configuration from config.yaml and the environment.
func LoadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("key_manager.type", "local")
	viper.SetDefault("key_manager.local.keystore_dir", "keystore")
	viper.SetDefault("key_manager.local.scrypt_preset", "standard")
	viper.SetDefault("key_manager.vault.address", "http://127.0.0.1:8200")
	viper.SetDefault("key_manager.vault.transit_path", "transit")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}
	if err = viper.Unmarshal(&config); err != nil {
		return
	}
	log.WithField("backend", config.KeyManager.Type).Info("Loaded configuration")
	return
}
