package node

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
	"github.com/fortiblox/X1-Bulldozer/pkg/rpc"
	"github.com/fortiblox/X1-Bulldozer/pkg/runtime"
)

// EnvPrefix prefixes every environment override, e.g. BULLDOZER_RPC_ADDR.
const EnvPrefix = "BULLDOZER"

// Config holds node configuration.
type Config struct {
	// DataDir is the root directory for all node data. Ledger state lives in
	// accounts/, the journal in journal/ and snapshots in snapshots/.
	DataDir string `mapstructure:"data_dir"`

	// InMemory keeps ledger state in memory. The journal then lives in a
	// temporary directory removed on Stop.
	InMemory bool `mapstructure:"in_memory"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // text or json

	RPC      RPCConfig      `mapstructure:"rpc"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// RPCConfig configures the JSON-RPC server.
type RPCConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	Addr               string  `mapstructure:"addr"`
	LogRequests        bool    `mapstructure:"log_requests"`
	EnableCORS         bool    `mapstructure:"enable_cors"`
	SendRate           float64 `mapstructure:"send_rate"`
	SendBurst          int     `mapstructure:"send_burst"`
	MaxAirdropLamports uint64  `mapstructure:"max_airdrop_lamports"`
}

// RuntimeConfig configures transaction execution.
type RuntimeConfig struct {
	ComputeUnitLimit uint64 `mapstructure:"compute_unit_limit"`
	MaxBlockhashAge  uint64 `mapstructure:"max_blockhash_age"`
	FaucetLamports   uint64 `mapstructure:"faucet_lamports"`
	FaucetSeed       string `mapstructure:"faucet_seed"`
}

// JournalConfig configures the transaction journal.
type JournalConfig struct {
	NoSync bool `mapstructure:"no_sync"`

	// RetainSlots is how many of the newest slots pruning keeps.
	RetainSlots uint64 `mapstructure:"retain_slots"`

	// PruneSchedule is a cron spec. Empty disables pruning.
	PruneSchedule string `mapstructure:"prune_schedule"`
}

// SnapshotConfig configures periodic accounts snapshots.
type SnapshotConfig struct {
	// Schedule is a cron spec. Empty disables snapshots.
	Schedule string `mapstructure:"schedule"`

	// Retain is how many snapshot files to keep.
	Retain int `mapstructure:"retain"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	rpcDefaults := rpc.DefaultConfig()
	runtimeDefaults := runtime.DefaultConfig()
	return Config{
		DataDir:   "./data",
		LogLevel:  "info",
		LogFormat: "text",
		RPC: RPCConfig{
			Enabled:            true,
			Addr:               rpcDefaults.Addr,
			EnableCORS:         rpcDefaults.EnableCORS,
			SendRate:           rpcDefaults.SendRate,
			SendBurst:          rpcDefaults.SendBurst,
			MaxAirdropLamports: rpcDefaults.MaxAirdropLamports,
		},
		Runtime: RuntimeConfig{
			ComputeUnitLimit: runtimeDefaults.ComputeUnitLimit,
			MaxBlockhashAge:  runtimeDefaults.MaxBlockhashAge,
			FaucetLamports:   500_000_000 * 1_000_000_000, // 500M SOL
			FaucetSeed:       runtimeDefaults.FaucetSeed,
		},
		Journal: JournalConfig{
			RetainSlots:   blockstore.DefaultRetainSlots,
			PruneSchedule: "@every 1h",
		},
		Snapshot: SnapshotConfig{
			Schedule: "@every 30m",
			Retain:   3,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.Wrap(ErrConfigInvalid, "data directory is required")
	}
	if c.RPC.Enabled && c.RPC.Addr == "" {
		return errors.Wrap(ErrConfigInvalid, "rpc address is required")
	}
	if c.Journal.RetainSlots != 0 && c.Journal.RetainSlots <= c.Runtime.MaxBlockhashAge {
		return errors.Wrap(ErrConfigInvalid, "journal must retain more slots than the blockhash age")
	}
	if c.Snapshot.Schedule != "" && c.InMemory {
		return errors.Wrap(ErrConfigInvalid, "snapshots need on-disk accounts")
	}
	return nil
}

// setDefaults registers every key so that environment overrides apply to
// keys missing from the config file.
func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("data_dir", c.DataDir)
	v.SetDefault("in_memory", c.InMemory)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)

	v.SetDefault("rpc.enabled", c.RPC.Enabled)
	v.SetDefault("rpc.addr", c.RPC.Addr)
	v.SetDefault("rpc.log_requests", c.RPC.LogRequests)
	v.SetDefault("rpc.enable_cors", c.RPC.EnableCORS)
	v.SetDefault("rpc.send_rate", c.RPC.SendRate)
	v.SetDefault("rpc.send_burst", c.RPC.SendBurst)
	v.SetDefault("rpc.max_airdrop_lamports", c.RPC.MaxAirdropLamports)

	v.SetDefault("runtime.compute_unit_limit", c.Runtime.ComputeUnitLimit)
	v.SetDefault("runtime.max_blockhash_age", c.Runtime.MaxBlockhashAge)
	v.SetDefault("runtime.faucet_lamports", c.Runtime.FaucetLamports)
	v.SetDefault("runtime.faucet_seed", c.Runtime.FaucetSeed)

	v.SetDefault("journal.no_sync", c.Journal.NoSync)
	v.SetDefault("journal.retain_slots", c.Journal.RetainSlots)
	v.SetDefault("journal.prune_schedule", c.Journal.PruneSchedule)

	v.SetDefault("snapshot.schedule", c.Snapshot.Schedule)
	v.SetDefault("snapshot.retain", c.Snapshot.Retain)
}

// LoadConfig layers defaults, the optional YAML file at path and
// BULLDOZER_* environment variables, in increasing precedence.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, errors.Wrap(err, "config file")
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "failed to load config")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	return config, config.Validate()
}
