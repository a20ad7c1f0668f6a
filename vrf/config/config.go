package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/raffle-labs/raffle/lib/kvstore"
	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/util"
)

const (
	defaultLogLevel       = zapcore.InfoLevel
	defaultLogDirname     = "logs"
	defaultLogFilename    = "vrfd.log"
	defaultConfigFileName = "vrfd.conf"
	defaultDataDirname    = "data"
	defaultDBFileName     = "vrfd.db"
	DefaultRPCPort        = 15813

	// HMACKeyEnv is read when no HMAC key is configured
	HMACKeyEnv = "HMAC_KEY"
)

var (
	//   C:\Users\<username>\AppData\Local\ on Windows
	//   ~/.vrfd on Linux
	//   ~/Users/<username>/Library/Application Support/Vrfd on MacOS
	DefaultVrfdDir = btcutil.AppDataDir("vrfd", false)

	DefaultRPCListener = "127.0.0.1:" + strconv.Itoa(DefaultRPCPort)
)

// Config is the main config of vrfd
type Config struct {
	LogLevel    string `long:"loglevel" description:"Logging level for all subsystems" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal"`
	RPCListener string `long:"rpclistener" description:"the listener for RPC connections, e.g., 127.0.0.1:1234"`
	HMACKey     string `long:"hmackey" description:"The HMAC key authenticating requests and callbacks. If not provided, will use HMAC_KEY environment variable."`

	// EnableManualFulfill exposes the route fulfilling a pending request
	// right away with caller chosen words
	EnableManualFulfill bool `long:"enablemanualfulfill" description:"Allow fulfilling requests with caller chosen words through the RPC server; for development only"`

	Coordinator *CoordinatorConfig `group:"coordinator" namespace:"coordinator"`

	DatabaseConfig *kvstore.DBConfig `group:"dbconfig" namespace:"dbconfig"`

	Metrics *metrics.Config `group:"metrics" namespace:"metrics"`
}

func DefaultConfigWithHomePath(homePath string) *Config {
	cfg := &Config{
		LogLevel:       defaultLogLevel.String(),
		RPCListener:    DefaultRPCListener,
		Coordinator:    DefaultCoordinatorConfig(),
		DatabaseConfig: kvstore.DefaultDBConfigWithPath(DataDir(homePath), defaultDBFileName),
		Metrics:        metrics.DefaultVrfConfig(),
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}

func DefaultConfig() *Config {
	return DefaultConfigWithHomePath(DefaultVrfdDir)
}

func CfgFile(homePath string) string {
	return filepath.Join(homePath, defaultConfigFileName)
}

func LogDir(homePath string) string {
	return filepath.Join(homePath, defaultLogDirname)
}

func LogFile(homePath string) string {
	return filepath.Join(LogDir(homePath), defaultLogFilename)
}

func DataDir(homePath string) string {
	return filepath.Join(homePath, defaultDataDirname)
}

// LoadConfig initializes and parses the config using a config file and
// the .env file of the home directory, if any.
func LoadConfig(homePath string) (*Config, error) {
	cfgFile := CfgFile(homePath)
	if !util.FileExists(cfgFile) {
		return nil, fmt.Errorf("specified config file does "+
			"not exist in %s", cfgFile)
	}

	if err := LoadEnvFile(homePath); err != nil {
		return nil, err
	}

	var cfg Config
	fileParser := flags.NewParser(&cfg, flags.Default)
	if err := flags.NewIniParser(fileParser).ParseFile(cfgFile); err != nil {
		return nil, err
	}

	if cfg.HMACKey == "" {
		cfg.HMACKey = os.Getenv(HMACKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadEnvFile loads <home>/.env into the process environment. Variables that
// are already set are not overridden.
func LoadEnvFile(homePath string) error {
	envFile := filepath.Join(homePath, ".env")
	if !util.FileExists(envFile) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	return nil
}

func (cfg *Config) Validate() error {
	if cfg.RPCListener == "" {
		return fmt.Errorf("RPC listener address cannot be empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", cfg.RPCListener); err != nil {
		return fmt.Errorf("invalid RPC listener address %s, %w", cfg.RPCListener, err)
	}

	if cfg.EnableManualFulfill && cfg.HMACKey == "" {
		return fmt.Errorf("an HMAC key is required to enable manual fulfillment")
	}

	if cfg.Coordinator == nil {
		return fmt.Errorf("coordinator config cannot be empty")
	}
	if err := cfg.Coordinator.Validate(); err != nil {
		return fmt.Errorf("invalid coordinator config: %w", err)
	}

	if cfg.DatabaseConfig == nil {
		return fmt.Errorf("database config cannot be empty")
	}
	if err := cfg.DatabaseConfig.Validate(); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}

	if cfg.Metrics == nil {
		return fmt.Errorf("empty metrics config")
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}
