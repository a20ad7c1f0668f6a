package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap/zapcore"

	"github.com/raffle-labs/raffle/lib/kvstore"
	"github.com/raffle-labs/raffle/metrics"
	"github.com/raffle-labs/raffle/util"
	vrfcfg "github.com/raffle-labs/raffle/vrf/config"
)

// Constants for config default values
const (
	defaultLogLevel       = zapcore.InfoLevel
	defaultLogDirname     = "logs"
	defaultLogFilename    = "rfd.log"
	defaultConfigFileName = "rfd.conf"
	defaultDataDirname    = "data"
	defaultDBFileName     = "rfd.db"
	defaultNetwork        = NetworkLocal
	DefaultRPCPort        = 12582
)

var (
	//   C:\Users\<username>\AppData\Local\ on Windows
	//   ~/.rfd on Linux
	//   ~/Users/<username>/Library/Application Support/Rfd on MacOS
	DefaultRfdDir = btcutil.AppDataDir("rfd", false)

	DefaultRPCListener = "127.0.0.1:" + strconv.Itoa(DefaultRPCPort)

	// DefaultRaffleAddress is the account holding the prize pool
	DefaultRaffleAddress = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")

	defaultRemoteCoordinator = "127.0.0.1:" + strconv.Itoa(vrfcfg.DefaultRPCPort)
	defaultCallbackURL       = "http://" + DefaultRPCListener + "/v1/vrf/fulfill"
)

// Config is the main config for the rfd cli command
type Config struct {
	LogLevel      string `long:"loglevel" description:"Logging level for all subsystems" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal"`
	Network       string `long:"network" description:"The network preset the raffle parameters were generated from" choice:"local" choice:"sepolia"`
	RaffleAddress string `long:"raffleaddress" description:"The account address holding the prize pool"`
	RPCListener   string `long:"rpclistener" description:"the listener for RPC connections, e.g., 127.0.0.1:1234"`
	HMACKey       string `long:"hmackey" description:"The HMAC key authenticating RPC requests and coordinator callbacks; required for a remote coordinator. If not provided, will use HMAC_KEY environment variable."`
	EnableFaucet  bool   `long:"enablefaucet" description:"Allow minting funds to accounts through the RPC server; for local networks only"`

	// EnableManualFulfill exposes the route that fulfills a pending request
	// with caller chosen words
	EnableManualFulfill bool `long:"enablemanualfulfill" description:"Allow fulfilling randomness requests with caller chosen words through the RPC server; for development only"`

	Raffle *RaffleConfig `group:"raffle" namespace:"raffle"`

	Upkeep *UpkeepConfig `group:"upkeep" namespace:"upkeep"`

	Coordinator *CoordinatorConfig `group:"coordinator" namespace:"coordinator"`

	DatabaseConfig *kvstore.DBConfig `group:"dbconfig" namespace:"dbconfig"`

	EventArchive *EventArchiveConfig `group:"eventarchive" namespace:"eventarchive"`

	Metrics *metrics.Config `group:"metrics" namespace:"metrics"`
}

func DefaultConfigWithHome(homePath string) Config {
	cfg, err := DefaultConfigForNetwork(homePath, defaultNetwork)
	if err != nil {
		panic(err)
	}

	return cfg
}

// DefaultConfigForNetwork returns the defaults with the raffle parameters and
// coordinator of the given network preset
func DefaultConfigForNetwork(homePath, network string) (Config, error) {
	raffleCfg, err := DefaultRaffleConfig(network)
	if err != nil {
		return Config{}, err
	}

	coordinatorCfg := DefaultCoordinatorConfig()
	coordinatorCfg.RemoteAddress = defaultRemoteCoordinator
	coordinatorCfg.CallbackURL = defaultCallbackURL
	if sender, ok := networkCoordinators[network]; ok {
		coordinatorCfg.Mode = CoordinatorModeRemote
		coordinatorCfg.RemoteSender = sender.Hex()
	}

	var hmacKey string
	if coordinatorCfg.Mode == CoordinatorModeRemote {
		if hmacKey, err = util.NewHMACKey(); err != nil {
			return Config{}, fmt.Errorf("failed to generate HMAC key: %w", err)
		}
	}

	cfg := Config{
		LogLevel:       defaultLogLevel.String(),
		Network:        network,
		RaffleAddress:  DefaultRaffleAddress.Hex(),
		RPCListener:    DefaultRPCListener,
		HMACKey:        hmacKey,
		EnableFaucet:   network == NetworkLocal,
		Raffle:         raffleCfg,
		Upkeep:         DefaultUpkeepConfig(),
		Coordinator:    coordinatorCfg,
		DatabaseConfig: kvstore.DefaultDBConfigWithPath(DataDir(homePath), defaultDBFileName),
		EventArchive:   DefaultEventArchiveConfig(),
		Metrics:        metrics.DefaultRaffleConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func DefaultConfig() Config {
	return DefaultConfigWithHome(DefaultRfdDir)
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

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Load <home>/.env into the environment, if present
//  2. Load configuration file overwriting defaults with any specified options
//  3. Fall back to HMAC_KEY for an empty HMAC key
//  4. Validate the result
func LoadConfig(homePath string) (*Config, error) {
	cfgFile := CfgFile(homePath)
	if !util.FileExists(cfgFile) {
		return nil, fmt.Errorf("specified config file does "+
			"not exist in %s", cfgFile)
	}

	if err := vrfcfg.LoadEnvFile(homePath); err != nil {
		return nil, err
	}

	var cfg Config
	fileParser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(cfgFile)
	if err != nil {
		return nil, err
	}

	if cfg.HMACKey == "" {
		cfg.HMACKey = os.Getenv(vrfcfg.HMACKeyEnv)
	}

	// Make sure everything we just loaded makes sense.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// GetRaffleAddress returns the parsed pool account
func (cfg *Config) GetRaffleAddress() common.Address {
	return common.HexToAddress(cfg.RaffleAddress)
}

// Validate checks the given configuration to be sane. This makes sure no
// illegal values or a combination of values are set.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if _, err := util.ParseAddress(cfg.RaffleAddress); err != nil {
		return fmt.Errorf("invalid raffle address: %w", err)
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.RPCListener); err != nil {
		return fmt.Errorf("invalid RPC listener address %s, %w", cfg.RPCListener, err)
	}

	if cfg.Raffle == nil {
		return fmt.Errorf("raffle config cannot be empty")
	}
	if err := cfg.Raffle.Validate(); err != nil {
		return fmt.Errorf("raffle configuration validation failed: %w", err)
	}

	if cfg.Upkeep == nil {
		return fmt.Errorf("upkeep config cannot be empty")
	}
	if err := cfg.Upkeep.Validate(); err != nil {
		return fmt.Errorf("upkeep configuration validation failed: %w", err)
	}

	if cfg.Coordinator == nil {
		return fmt.Errorf("coordinator config cannot be empty")
	}
	if err := cfg.Coordinator.Validate(); err != nil {
		return fmt.Errorf("coordinator configuration validation failed: %w", err)
	}
	if cfg.Coordinator.Mode == CoordinatorModeLocal && common.HexToAddress(cfg.Coordinator.Local.Address) == cfg.GetRaffleAddress() {
		return fmt.Errorf("the coordinator and the raffle cannot share an account")
	}
	if cfg.Coordinator.Mode == CoordinatorModeRemote && cfg.HMACKey == "" {
		return fmt.Errorf("an HMAC key is required to authenticate the callbacks of a remote coordinator")
	}
	if cfg.EnableManualFulfill && cfg.HMACKey == "" {
		return fmt.Errorf("an HMAC key is required to enable manual fulfillment")
	}

	if cfg.DatabaseConfig == nil {
		return fmt.Errorf("database config cannot be empty")
	}
	if err := cfg.DatabaseConfig.Validate(); err != nil {
		return fmt.Errorf("database configuration validation failed: %w", err)
	}

	if cfg.EventArchive == nil {
		return fmt.Errorf("event archive config cannot be empty")
	}
	if err := cfg.EventArchive.Validate(); err != nil {
		return fmt.Errorf("event archive configuration validation failed: %w", err)
	}

	if cfg.Metrics == nil {
		return fmt.Errorf("metrics configuration cannot be empty")
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration validation failed: %w", err)
	}

	return nil
}
