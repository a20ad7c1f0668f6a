package daemon

import (
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/spf13/cobra"

	rfdcfg "github.com/raffle-labs/raffle/raffle/config"
	"github.com/raffle-labs/raffle/util"
)

// CommandInit returns the init command of rfd daemon.
func CommandInit() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "init",
		Short:   "Initialize an rfd home directory.",
		Long:    `Creates a new rfd home directory with the config of the given network preset.`,
		Example: `rfd init --home /home/user/.rfd --network local`,
		Args:    cobra.NoArgs,
		RunE:    runInitCmd,
	}
	cmd.Flags().Bool(forceFlag, false, "Override existing configuration")
	cmd.Flags().String(networkFlag, rfdcfg.NetworkLocal, "The network preset of the raffle parameters, local or sepolia")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	force, err := f.GetBool(forceFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", forceFlag, err)
	}
	network, err := f.GetString(networkFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", networkFlag, err)
	}

	if util.FileExists(homePath) && !force {
		return fmt.Errorf("home path %s already exists", homePath)
	}

	if err := util.MakeDirectory(homePath); err != nil {
		return err
	}
	// Create log directory
	logDir := rfdcfg.LogDir(homePath)
	if err := util.MakeDirectory(logDir); err != nil {
		return err
	}
	// Create data directory
	dataDir := rfdcfg.DataDir(homePath)
	if err := util.MakeDirectory(dataDir); err != nil {
		return err
	}

	defaultConfig, err := rfdcfg.DefaultConfigForNetwork(homePath, network)
	if err != nil {
		return err
	}
	fileParser := flags.NewParser(&defaultConfig, flags.Default)

	if err := flags.NewIniParser(fileParser).WriteFile(rfdcfg.CfgFile(homePath), flags.IniIncludeComments|flags.IniIncludeDefaults); err != nil {
		return err
	}

	cmd.Printf("rfd home initialized at %s for network %s\n", homePath, network)

	return nil
}
