package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

const jsonFlag = "json"

// CommandVersion prints the build info of binaryName
func CommandVersion(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "version",
		Short:   "Prints version of this binary.",
		Aliases: []string{"v"},
		Example: fmt.Sprintf("%s version --json", binaryName),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := cmd.Flags().GetBool(jsonFlag)
			if err != nil {
				return err
			}

			info := Get()
			if !asJSON {
				cmd.Print(info.String())
				return nil
			}

			bz, err := json.MarshalIndent(info, "", "    ")
			if err != nil {
				return err
			}
			cmd.Println(string(bz))

			return nil
		},
	}
	cmd.Flags().Bool(jsonFlag, false, "Print the build info as JSON")

	return cmd
}
