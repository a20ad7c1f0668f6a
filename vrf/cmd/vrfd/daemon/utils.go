package daemon

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/raffle-labs/raffle/util"
	"github.com/raffle-labs/raffle/vrf/client"
	vrfcfg "github.com/raffle-labs/raffle/vrf/config"
)

func getHomePath(cmd *cobra.Command) (string, error) {
	return getCleanPath(cmd, homeFlag)
}

func getCleanPath(cmd *cobra.Command, flag string) (string, error) {
	rawPath, err := cmd.Flags().GetString(flag)
	if err != nil {
		return "", err
	}

	cleanPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", err
	}

	return util.CleanAndExpandPath(cleanPath), nil
}

// addClientFlags registers the flags of commands talking to a running vrfd
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(rpcClientFlag, vrfcfg.DefaultRPCListener, "The RPC address of a running vrfd")
	f.String(hmacKeyFlag, "", "The HMAC key; defaults to the configured key or the HMAC_KEY environment variable")
	f.Int(timeoutFlag, defaultTimeoutMs, "The timeout of each request, in milliseconds")
}

// newClient connects to the vrfd given by the client flags. The HMAC key falls
// back to the key of the config in the home directory.
func newClient(cmd *cobra.Command) (*client.VrfCoordinatorClient, error) {
	flags := cmd.Flags()
	addr, err := flags.GetString(rpcClientFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to read flag %s: %w", rpcClientFlag, err)
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
		if cfg, err := vrfcfg.LoadConfig(homePath); err == nil {
			hmacKey = cfg.HMACKey
		}
	}

	return client.NewVrfCoordinatorClient(addr, hmacKey, time.Duration(timeoutMs)*time.Millisecond)
}

func printRespJSON(cmd *cobra.Command, resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		cmd.Println("unable to decode response: ", err)
		return
	}

	cmd.Printf("%s\n", jsonBytes)
}
