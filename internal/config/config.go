package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/staking-indexer/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug       bool   `mapstructure:"debug"`
	SentryDSN   string `mapstructure:"sentry_dsn"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	Path            string        `mapstructure:"path"`   // sqlite database file
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL             string        `mapstructure:"url"`
	StreamName      string        `mapstructure:"stream_name"`
	ConsumerName    string        `mapstructure:"consumer_name"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName  string        `mapstructure:"connection_name"`
	AckWait         time.Duration `mapstructure:"ack_wait"`
	MaxDeliver      int           `mapstructure:"max_deliver"`
	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`
	ConnectRetries  uint64        `mapstructure:"connect_retries"`
}

// EthereumConfig holds Ethereum-specific configuration
type EthereumConfig struct {
	RPCURL            string        `mapstructure:"rpc_url"`
	ChainID           domain.Chain  `mapstructure:"chain_id"`
	StartBlock        uint64        `mapstructure:"start_block"`
	Confirmations     uint64        `mapstructure:"confirmations"`
	BatchSize         uint64        `mapstructure:"batch_size"` // blocks per subscriber range
	StepSize          uint64        `mapstructure:"step_size"`  // blocks per eth_getLogs call
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Workers           int           `mapstructure:"workers"` // concurrent block header fetches
	MetadataCacheSize int           `mapstructure:"metadata_cache_size"`
}

// FactoryConfig declares a factory contract and the kind of pool it deploys
type FactoryConfig struct {
	Address string          `mapstructure:"address"`
	Kind    domain.PoolKind `mapstructure:"kind"`
}

// ContractsConfig lists the contracts the indexer follows
type ContractsConfig struct {
	Factories []FactoryConfig `mapstructure:"factories"`
	// Pools are followed even when their deployment happened before the start block
	Pools []string `mapstructure:"pools"`
}

// AccountingConfig holds reward accounting configuration
type AccountingConfig struct {
	// Precision is the scale of accRewardPerShare
	Precision uint64 `mapstructure:"precision"`
}

// CursorConfig controls how often the emitter persists its block cursor
type CursorConfig struct {
	SaveFrequency uint64        `mapstructure:"save_frequency"` // in blocks
	SaveDelay     time.Duration `mapstructure:"save_delay"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout    int      `mapstructure:"idle_timeout"`  // in seconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EmitterConfig holds configuration for staking-event-emitter
type EmitterConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig  `mapstructure:"database"`
	NATS       NATSConfig      `mapstructure:"nats"`
	Ethereum   EthereumConfig  `mapstructure:"ethereum"`
	Contracts  ContractsConfig `mapstructure:"contracts"`
	Cursor     CursorConfig    `mapstructure:"cursor"`
}

// IndexerConfig holds configuration for staking-indexer
type IndexerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Contracts  ContractsConfig  `mapstructure:"contracts"`
	Accounting AccountingConfig `mapstructure:"accounting"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Accounting AccountingConfig `mapstructure:"accounting"`
}

// LoadEmitterConfig loads configuration for staking-event-emitter
func LoadEmitterConfig(configFile string, envPath string) (*EmitterConfig, error) {
	v := configureViper("staking-event-emitter", configFile, envPath)

	setDatabaseDefaults(v)
	setNATSDefaults(v)
	setEthereumDefaults(v)
	v.SetDefault("cursor.save_frequency", 100)
	v.SetDefault("cursor.save_delay", "1m")

	var config EmitterConfig
	if err := load(v, &config); err != nil {
		return nil, err
	}
	if err := config.Contracts.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadIndexerConfig loads configuration for staking-indexer
func LoadIndexerConfig(configFile string, envPath string) (*IndexerConfig, error) {
	v := configureViper("staking-indexer", configFile, envPath)

	setDatabaseDefaults(v)
	setNATSDefaults(v)
	setEthereumDefaults(v)
	v.SetDefault("nats.consumer_name", "staking-indexer")
	v.SetDefault("accounting.precision", domain.DEFAULT_ACC_REWARD_PRECISION)

	var config IndexerConfig
	if err := load(v, &config); err != nil {
		return nil, err
	}
	if err := config.Contracts.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("accounting.precision", domain.DEFAULT_ACC_REWARD_PRECISION)
	setDatabaseDefaults(v)

	var config APIConfig
	if err := load(v, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
}

func setNATSDefaults(v *viper.Viper) {
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "STAKING_EVENTS")
	v.SetDefault("nats.ack_wait", "30s")
	v.SetDefault("nats.max_deliver", -1)
	v.SetDefault("nats.duplicate_window", "10m")
	v.SetDefault("nats.connect_retries", 5)
}

func setEthereumDefaults(v *viper.Viper) {
	v.SetDefault("ethereum.chain_id", string(domain.ChainEthereumMainnet))
	v.SetDefault("ethereum.confirmations", 12)
	v.SetDefault("ethereum.batch_size", 500)
	v.SetDefault("ethereum.step_size", 2000)
	v.SetDefault("ethereum.poll_interval", "12s")
	v.SetDefault("ethereum.workers", 4)
	v.SetDefault("ethereum.metadata_cache_size", 1024)
}

// load reads the config file when present and decodes it into out
func load(v *viper.Viper, out interface{}) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// Validate checks the configured contract addresses and factory kinds
func (c *ContractsConfig) Validate() error {
	for _, f := range c.Factories {
		if !common.IsHexAddress(f.Address) {
			return fmt.Errorf("invalid factory address: %q", f.Address)
		}
		if !f.Kind.Valid() {
			return fmt.Errorf("invalid pool kind %q for factory %s", f.Kind, f.Address)
		}
	}
	for _, p := range c.Pools {
		if !common.IsHexAddress(p) {
			return fmt.Errorf("invalid pool address: %q", p)
		}
	}
	return nil
}

// FactoryKinds returns the pool kind of every configured factory
func (c *ContractsConfig) FactoryKinds() map[string]domain.PoolKind {
	kinds := make(map[string]domain.PoolKind, len(c.Factories))
	for _, f := range c.Factories {
		kinds[f.Address] = f.Kind
	}
	return kinds
}

// FactoryAddresses returns the configured factory addresses
func (c *ContractsConfig) FactoryAddresses() []string {
	addresses := make([]string, 0, len(c.Factories))
	for _, f := range c.Factories {
		addresses = append(addresses, f.Address)
	}
	return addresses
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/staking-indexer/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("STAKING_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	commonKeys := []string{
		"debug",
		"sentry_dsn",
		"environment",
		// Database
		"database.driver",
		"database.path",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.consumer_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		"nats.max_deliver",
		"nats.duplicate_window",
		"nats.connect_retries",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.start_block",
		"ethereum.confirmations",
		"ethereum.batch_size",
		"ethereum.step_size",
		"ethereum.poll_interval",
		"ethereum.workers",
		"ethereum.metadata_cache_size",
		// Contracts
		"contracts.pools",
		// Accounting
		"accounting.precision",
		// Cursor
		"cursor.save_frequency",
		"cursor.save_delay",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.allowed_origins",
	}

	for _, key := range commonKeys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string.
// For sqlite it is the database file path.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
