package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/staking-indexer/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	if content == "" {
		return filepath.Join(t.TempDir(), "nonexistent.yaml")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadEmitterConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *EmitterConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
environment: staging
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  max_reconnects: 5
  reconnect_wait: "5s"
  connection_name: "test-connection"
  duplicate_window: "1h"
ethereum:
  rpc_url: "http://localhost:8545"
  chain_id: "eip155:11155111"
  start_block: 1000
  confirmations: 3
  batch_size: 50
  poll_interval: "4s"
contracts:
  factories:
    - address: "0x00000000000000000000000000000000000000f1"
      kind: erc20
    - address: "0x00000000000000000000000000000000000000f2"
      kind: erc721
  pools:
    - "0x00000000000000000000000000000000000000a1"
cursor:
  save_frequency: 10
  save_delay: "30s"
`,
			validate: func(t *testing.T, cfg *EmitterConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "staging", cfg.Environment)
				assert.Equal(t, "testdb", cfg.Database.DBName)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, time.Hour, cfg.NATS.DuplicateWindow)
				assert.Equal(t, domain.ChainEthereumSepolia, cfg.Ethereum.ChainID)
				assert.Equal(t, uint64(1000), cfg.Ethereum.StartBlock)
				assert.Equal(t, uint64(3), cfg.Ethereum.Confirmations)
				assert.Equal(t, uint64(50), cfg.Ethereum.BatchSize)
				assert.Equal(t, 4*time.Second, cfg.Ethereum.PollInterval)
				require.Len(t, cfg.Contracts.Factories, 2)
				assert.Equal(t, domain.PoolKindNonFungible, cfg.Contracts.Factories[1].Kind)
				assert.Equal(t, []string{"0x00000000000000000000000000000000000000a1"}, cfg.Contracts.Pools)
				assert.Equal(t, uint64(10), cfg.Cursor.SaveFrequency)
				assert.Equal(t, 30*time.Second, cfg.Cursor.SaveDelay)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
nats:
  url: "nats://localhost:4222"
ethereum:
  rpc_url: "http://localhost:8545"
`,
			validate: func(t *testing.T, cfg *EmitterConfig) {
				assert.Equal(t, DriverPostgres, cfg.Database.Driver)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "2s", cfg.NATS.ReconnectWait.String())
				assert.Equal(t, "STAKING_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, 10*time.Minute, cfg.NATS.DuplicateWindow)
				assert.Equal(t, domain.ChainEthereumMainnet, cfg.Ethereum.ChainID)
				assert.Equal(t, uint64(12), cfg.Ethereum.Confirmations)
				assert.Equal(t, uint64(500), cfg.Ethereum.BatchSize)
				assert.Equal(t, uint64(2000), cfg.Ethereum.StepSize)
				assert.Equal(t, 12*time.Second, cfg.Ethereum.PollInterval)
				assert.Equal(t, 4, cfg.Ethereum.Workers)
				assert.Equal(t, uint64(100), cfg.Cursor.SaveFrequency)
				assert.Equal(t, time.Minute, cfg.Cursor.SaveDelay)
			},
		},
		{
			name: "invalid factory kind",
			configFile: `
contracts:
  factories:
    - address: "0x00000000000000000000000000000000000000f1"
      kind: erc1155
`,
			expectError: true,
		},
		{
			name: "invalid pool address",
			configFile: `
contracts:
  pools:
    - "pool-one"
`,
			expectError: true,
		},
		{
			name:       "missing config file",
			configFile: "",
			validate: func(t *testing.T, cfg *EmitterConfig) {
				assert.Equal(t, "STAKING_EVENTS", cfg.NATS.StreamName)
			},
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadEmitterConfig(writeConfig(t, tt.configFile), t.TempDir())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoadIndexerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *IndexerConfig)
	}{
		{
			name: "valid config file",
			configFile: `
database:
  driver: sqlite
  path: /tmp/staking.db
nats:
  url: "nats://localhost:4222"
  consumer_name: "indexer-1"
  ack_wait: "1m"
  max_deliver: 8
  connect_retries: 2
ethereum:
  rpc_url: "http://localhost:8545"
  metadata_cache_size: 64
contracts:
  factories:
    - address: "0x00000000000000000000000000000000000000f1"
      kind: erc20
accounting:
  precision: 1000000000000
`,
			validate: func(t *testing.T, cfg *IndexerConfig) {
				assert.Equal(t, DriverSQLite, cfg.Database.Driver)
				assert.Equal(t, "/tmp/staking.db", cfg.Database.DSN())
				assert.Equal(t, "indexer-1", cfg.NATS.ConsumerName)
				assert.Equal(t, time.Minute, cfg.NATS.AckWait)
				assert.Equal(t, 8, cfg.NATS.MaxDeliver)
				assert.Equal(t, uint64(2), cfg.NATS.ConnectRetries)
				assert.Equal(t, 64, cfg.Ethereum.MetadataCacheSize)
				assert.Equal(t, uint64(1000000000000), cfg.Accounting.Precision)
				assert.Equal(t, map[string]domain.PoolKind{
					"0x00000000000000000000000000000000000000f1": domain.PoolKindFungible,
				}, cfg.Contracts.FactoryKinds())
			},
		},
		{
			name:       "defaults",
			configFile: "",
			validate: func(t *testing.T, cfg *IndexerConfig) {
				assert.Equal(t, "staking-indexer", cfg.NATS.ConsumerName)
				assert.Equal(t, 30*time.Second, cfg.NATS.AckWait)
				assert.Equal(t, -1, cfg.NATS.MaxDeliver)
				assert.Equal(t, uint64(5), cfg.NATS.ConnectRetries)
				assert.Equal(t, uint64(domain.DEFAULT_ACC_REWARD_PRECISION), cfg.Accounting.Precision)
				assert.Equal(t, 1024, cfg.Ethereum.MetadataCacheSize)
			},
		},
		{
			name: "invalid factory address",
			configFile: `
contracts:
  factories:
    - address: "factory"
      kind: erc20
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadIndexerConfig(writeConfig(t, tt.configFile), t.TempDir())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadAPIConfig(t *testing.T) {
	cfg, err := LoadAPIConfig(writeConfig(t, `
server:
  port: 9090
  allowed_origins:
    - "https://feralfile.com"
accounting:
  precision: 1000
`), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.ReadTimeout)
	assert.Equal(t, 120, cfg.Server.IdleTimeout)
	assert.Equal(t, []string{"https://feralfile.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, uint64(1000), cfg.Accounting.Precision)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
}

func TestContractsConfig_FactoryAddresses(t *testing.T) {
	c := ContractsConfig{Factories: []FactoryConfig{
		{Address: "0x00000000000000000000000000000000000000f1", Kind: domain.PoolKindFungible},
		{Address: "0x00000000000000000000000000000000000000f2", Kind: domain.PoolKindNonFungible},
	}}

	assert.NoError(t, c.Validate())
	assert.Equal(t, []string{
		"0x00000000000000000000000000000000000000f1",
		"0x00000000000000000000000000000000000000f2",
	}, c.FactoryAddresses())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "complete config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require",
		},
		{
			name: "with special characters in password",
			config: DatabaseConfig{
				Driver:   DriverPostgres,
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "p@ssw0rd!",
				DBName:   "testdb",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable",
		},
		{
			name: "sqlite",
			config: DatabaseConfig{
				Driver: DriverSQLite,
				Path:   "file:staking.db",
				Host:   "ignored",
			},
			expected: "file:staking.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	envKeys := []string{
		"STAKING_INDEXER_DEBUG",
		"STAKING_INDEXER_DATABASE_HOST",
		"STAKING_INDEXER_DATABASE_PORT",
		"STAKING_INDEXER_DATABASE_DBNAME",
		"STAKING_INDEXER_ACCOUNTING_PRECISION",
	}
	// register restoration of every key the .env file overloads
	for _, key := range envKeys {
		t.Setenv(key, "")
	}

	envDir := t.TempDir()
	envContent := `STAKING_INDEXER_DEBUG=true
STAKING_INDEXER_DATABASE_HOST=env-host
STAKING_INDEXER_DATABASE_PORT=3306
STAKING_INDEXER_DATABASE_DBNAME=env-db
STAKING_INDEXER_ACCOUNTING_PRECISION=1000000
`
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env"), []byte(envContent), 0600))

	configPath := writeConfig(t, `
debug: false
database:
  host: file-host
  port: 5432
  dbname: file-db
accounting:
  precision: 1
`)

	cfg, err := LoadAPIConfig(configPath, envDir)
	require.NoError(t, err)

	// values from the .env file override the config file
	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "env-db", cfg.Database.DBName)
	assert.Equal(t, uint64(1000000), cfg.Accounting.Precision)
}
