package config

import (
	"fmt"
	"net/url"
	"time"

	vrfcfg "github.com/raffle-labs/raffle/vrf/config"
)

const (
	CoordinatorModeLocal  = "local"
	CoordinatorModeRemote = "remote"

	defaultSubscriptionFunding = "3"
	defaultRequestTimeout      = 10 * time.Second
)

// CoordinatorConfig selects and configures the randomness coordinator of rfd
type CoordinatorConfig struct {
	Mode string `long:"mode" description:"Run the coordinator in process or use a remote vrfd" choice:"local" choice:"remote"`

	// in process coordinator, also used for the deploy interactions
	Local               *vrfcfg.CoordinatorConfig `group:"local" namespace:"local"`
	SubscriptionFunding string                    `long:"subscriptionfunding" description:"The amount, in LINK, funded into a subscription created on start"`

	// remote coordinator
	RemoteAddress  string        `long:"remoteaddress" description:"The address of the remote vrfd, e.g., 127.0.0.1:15813"`
	RemoteSender   string        `long:"remotesender" description:"The account address of the remote coordinator, the only sender allowed to fulfill"`
	CallbackURL    string        `long:"callbackurl" description:"The URL vrfd delivers random words to, e.g., http://127.0.0.1:12582/v1/vrf/fulfill"`
	RequestTimeout time.Duration `long:"requesttimeout" description:"The timeout of each request to the remote vrfd"`
}

func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		Mode:                CoordinatorModeLocal,
		Local:               vrfcfg.DefaultCoordinatorConfig(),
		SubscriptionFunding: defaultSubscriptionFunding,
		RemoteSender:        vrfcfg.DefaultCoordinatorAddress.Hex(),
		RequestTimeout:      defaultRequestTimeout,
	}
}

func (cfg *CoordinatorConfig) Validate() error {
	switch cfg.Mode {
	case CoordinatorModeLocal:
		if cfg.Local == nil {
			return fmt.Errorf("local coordinator config cannot be empty")
		}
		if err := cfg.Local.Validate(); err != nil {
			return err
		}
	case CoordinatorModeRemote:
		if cfg.RemoteAddress == "" {
			return fmt.Errorf("remote coordinator address cannot be empty")
		}
		if cfg.RemoteSender == "" {
			return fmt.Errorf("remote coordinator sender cannot be empty")
		}
		u, err := url.Parse(cfg.CallbackURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid callback URL %q", cfg.CallbackURL)
		}
		if cfg.RequestTimeout <= 0 {
			return fmt.Errorf("request timeout must be positive, got %v", cfg.RequestTimeout)
		}
	default:
		return fmt.Errorf("unknown coordinator mode %q", cfg.Mode)
	}

	return nil
}
