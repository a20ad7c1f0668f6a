package daemon

import (
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/spf13/cobra"

	"github.com/raffle-labs/raffle/util"
	vrfcfg "github.com/raffle-labs/raffle/vrf/config"
)

func NewInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the vrfd home directory.",
		Long: "Creates the home directory with the default vrfd.conf. A fresh seed key is " +
			"generated, so words fulfilled by two homes never coincide.",
		RunE: initHome,
	}

	initCmd.Flags().Bool(forceFlag, false, "Override existing configuration")

	return initCmd
}

func initHome(cmd *cobra.Command, _ []string) error {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool(forceFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", forceFlag, err)
	}

	if util.FileExists(homePath) && !force {
		return fmt.Errorf("home path %s already exists", homePath)
	}

	if err := util.MakeDirectory(homePath); err != nil {
		return err
	}
	// Create log directory
	logDir := vrfcfg.LogDir(homePath)
	if err := util.MakeDirectory(logDir); err != nil {
		return err
	}
	// Create data directory
	dataDir := vrfcfg.DataDir(homePath)
	if err := util.MakeDirectory(dataDir); err != nil {
		return err
	}

	defaultConfig := vrfcfg.DefaultConfigWithHomePath(homePath)
	fileParser := flags.NewParser(defaultConfig, flags.Default)

	if err := flags.NewIniParser(fileParser).WriteFile(vrfcfg.CfgFile(homePath), flags.IniIncludeComments|flags.IniIncludeDefaults); err != nil {
		return err
	}

	cmd.Printf("vrfd home initialized at %s\n", homePath)

	return nil
}
