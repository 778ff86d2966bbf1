package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(meCmd)
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated user's profile",
	Long:  `Fetch and display the profile of the currently authenticated user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := GetCurrentProfile()
		if err != nil {
			return fmt.Errorf("not authenticated: %w", err)
		}

		client := NewAPIClientFromProfile(profile)
		user, err := client.Me()
		if err != nil {
			return fmt.Errorf("failed to fetch profile: %w", err)
		}

		return RenderUser(user, viper.GetString("output"))
	},
}
