package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Save, list and show named settings profiles",
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the effective settings (flags, env, config) as a profile",
	Example: `  vapora profile save tight --depth 1 --max-nodes 150 --groups
  vapora scan 76561197960287930 --profile tight`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := userProfiles()
		if err != nil {
			return err
		}
		path, err := profiles.Save(args[0], cfg)
		if err != nil {
			return err
		}
		fmt.Println(field("SAVED", path))
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := userProfiles()
		if err != nil {
			return err
		}
		names, err := profiles.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println(warnStyle.Render("No saved profiles."))
			return nil
		}
		for _, n := range names {
			fmt.Println("  " + n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := userProfiles()
		if err != nil {
			return err
		}
		data, err := profiles.Read(args[0])
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileSaveCmd, profileListCmd, profileShowCmd)
	rootCmd.AddCommand(profileCmd)
}
