package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarchlab/avdcache/datarecording"
	"github.com/sarchlab/avdcache/mem/cache"
	"github.com/sarchlab/avdcache/mem/mem"
)

// appFs is the filesystem that traces, reports and config files live on.
var appFs afero.Fs = afero.NewOsFs()

// EnvPrefix prefixes the environment variables that override config keys,
// e.g. CACHESIM_L1_SIZE.
const EnvPrefix = "CACHESIM"

// Config holds the settings of a simulation run.
type Config struct {
	L1Size         uint64 `mapstructure:"l1_size"`
	L2Size         uint64 `mapstructure:"l2_size"`
	Associativity  int    `mapstructure:"associativity"`
	LineSize       uint64 `mapstructure:"line_size"`
	Replacement    string `mapstructure:"replacement"`
	Seed           uint64 `mapstructure:"seed"`
	Output         string `mapstructure:"output"`
	Record         string `mapstructure:"record"`
	RecordAccesses bool   `mapstructure:"record_accesses"`
	LogAccesses    bool   `mapstructure:"log_accesses"`
	Monitor        bool   `mapstructure:"monitor"`
	MonitorPort    int    `mapstructure:"monitor_port"`
	MonitorOpen    bool   `mapstructure:"monitor_open"`
	Jobs           int    `mapstructure:"jobs"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() Config {
	return Config{
		L1Size:        8 * mem.MB,
		L2Size:        8 * mem.MB,
		Associativity: 1,
		LineSize:      64,
		Replacement:   string(cache.LRU),
		Output:        "cache.out",
	}
}

type configKey struct {
	key  string
	flag string
}

var configKeys = []configKey{
	{"l1_size", "s1"},
	{"l2_size", "s2"},
	{"associativity", "assoc"},
	{"line_size", "line-size"},
	{"replacement", "replace"},
	{"seed", "seed"},
	{"output", "output"},
	{"record", "record"},
	{"record_accesses", "record-accesses"},
	{"log_accesses", "log-accesses"},
	{"monitor", "monitor"},
	{"monitor_port", "monitor-port"},
	{"monitor_open", "monitor-open"},
	{"jobs", "jobs"},
}

func addGeometryFlags(cmd *cobra.Command) {
	d := DefaultConfig()
	flags := cmd.Flags()

	flags.Uint64("s1", d.L1Size, "L1 cache size (bytes)")
	flags.Uint64("s2", d.L2Size, "L2 cache size (bytes)")
	flags.IntP("assoc", "a", d.Associativity, "Cache associativity")
	flags.Uint64P("line-size", "l", d.LineSize, "Cache line size (bytes)")
	flags.String("replace", d.Replacement,
		"Cache replacement policy (LRU, FIFO or RANDOM)")
	flags.Uint64("seed", d.Seed, "Seed of the RANDOM replacement policy (L2 uses seed+1)")
}

func addRunFlags(cmd *cobra.Command) {
	d := DefaultConfig()
	flags := cmd.Flags()

	flags.StringP("output", "o", d.Output, "Specify the report file name")
	flags.String("record", "",
		"Record statistics into <record>.sqlite3")
	flags.Bool("record-accesses", false,
		"Also record every cache access (requires --record)")
	flags.Bool("log-accesses", false, "Log every cache access")
	flags.Bool("monitor", false, "Serve the cache state over HTTP")
	flags.Int("monitor-port", 0, "Port of the monitoring server")
	flags.Bool("monitor-open", false, "Open the monitor in a browser")
	flags.IntP("jobs", "j", 0,
		"Number of traces replayed at the same time (0 means one per CPU)")
}

// loadConfig merges, from highest to lowest priority, the flags of cmd, the
// CACHESIM_* environment, the file named by --config and the defaults.
func loadConfig(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetFs(appFs)

	d := DefaultConfig()
	v.SetDefault("l1_size", d.L1Size)
	v.SetDefault("l2_size", d.L2Size)
	v.SetDefault("associativity", d.Associativity)
	v.SetDefault("line_size", d.LineSize)
	v.SetDefault("replacement", d.Replacement)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("output", d.Output)
	v.SetDefault("record", d.Record)
	v.SetDefault("record_accesses", d.RecordAccesses)
	v.SetDefault("log_accesses", d.LogAccesses)
	v.SetDefault("monitor", d.Monitor)
	v.SetDefault("monitor_port", d.MonitorPort)
	v.SetDefault("monitor_open", d.MonitorOpen)
	v.SetDefault("jobs", d.Jobs)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, k := range configKeys {
		f := cmd.Flag(k.flag)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(k.key, f); err != nil {
			return Config{}, fmt.Errorf("binding flag %s: %w", k.flag, err)
		}
	}

	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w",
				f.Value.String(), err)
		}
	}

	c := Config{}
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate checks the settings that are not checked when the caches are
// built.
func (c Config) Validate() error {
	if c.Output == "" {
		return errors.New("output file name cannot be empty")
	}

	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be non-negative, got %d", c.Jobs)
	}

	if c.RecordAccesses && c.Record == "" {
		return errors.New("record-accesses requires record")
	}

	if c.Record != "" {
		filename := c.Record + datarecording.FileExtension

		exists, err := afero.Exists(appFs, filename)
		if err != nil {
			return fmt.Errorf("checking record file %s: %w", filename, err)
		}

		if exists {
			return fmt.Errorf("record file %s already exists", filename)
		}
	}

	return nil
}

func (c Config) cacheBuilder(size, seed uint64) cache.Builder {
	return cache.MakeBuilder().
		WithByteSize(size).
		WithBlockSize(c.LineSize).
		WithWayAssociativity(c.Associativity).
		WithReplacePolicy(c.Replacement).
		WithSeed(seed)
}

// L1Builder returns the builder of the first-level cache.
func (c Config) L1Builder() cache.Builder {
	return c.cacheBuilder(c.L1Size, c.Seed)
}

// L2Builder returns the builder of the second-level cache. Its random policy
// is seeded with Seed+1 so the two levels do not evict in lockstep.
func (c Config) L2Builder() cache.Builder {
	return c.cacheBuilder(c.L2Size, c.Seed+1)
}
