package daemon

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	rfdcfg "github.com/raffle-labs/raffle/raffle/config"
	"github.com/raffle-labs/raffle/raffle/service/client"
	"github.com/raffle-labs/raffle/util"
)

func getHomePath(cmd *cobra.Command) (string, error) {
	rawPath, err := cmd.Flags().GetString(homeFlag)
	if err != nil {
		return "", err
	}

	cleanPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", err
	}

	return util.CleanAndExpandPath(cleanPath), nil
}

// addClientFlags registers the flags of commands talking to a running rfd
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(daemonAddrFlag, rfdcfg.DefaultRPCListener, "The RPC server address of rfd")
	f.String(hmacKeyFlag, "", "The HMAC key; defaults to the configured key or the HMAC_KEY environment variable")
	f.Int(timeoutFlag, defaultTimeoutMs, "The timeout of each request, in milliseconds")
}

// newClient connects to the rfd given by the client flags. The HMAC key falls
// back to the key of the config in the home directory.
func newClient(cmd *cobra.Command) (*client.RaffleServiceClient, error) {
	flags := cmd.Flags()
	addr, err := flags.GetString(daemonAddrFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to read flag %s: %w", daemonAddrFlag, err)
	}
	hmacKey, err := flags.GetString(hmacKeyFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to read flag %s: %w", hmacKeyFlag, err)
	}
	timeoutMs, err := flags.GetInt(timeoutFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to read flag %s: %w", timeoutFlag, err)
	}

	if hmacKey == "" {
		homePath, err := getHomePath(cmd)
		if err != nil {
			return nil, err
		}
		if cfg, err := rfdcfg.LoadConfig(homePath); err == nil {
			hmacKey = cfg.HMACKey
		}
	}

	return client.NewRaffleServiceClient(addr, hmacKey, time.Duration(timeoutMs)*time.Millisecond)
}

func printRespJSON(cmd *cobra.Command, resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		cmd.Println("unable to decode response: ", err)
		return
	}

	cmd.Printf("%s\n", jsonBytes)
}
