package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(reposCmd)
	reposCmd.AddCommand(reposListCmd)
	reposCmd.AddCommand(reposSyncCmd)
	reposCmd.AddCommand(reposStatusCmd)

	// Repos list flags
	reposListCmd.Flags().IntP("limit", "l", 0, "Limit number of results (server caps at 100)")
}

var reposCmd = &cobra.Command{
	Use:     "repos",
	Short:   "Repository snapshot commands",
	Long:    `List and refresh the GitHub repository snapshots stored for your account.`,
	Aliases: []string{"r"},
}

var reposListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List synced repositories",
	Long:    `List the repository snapshots from the most recent GitHub sync.`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := GetCurrentProfile()
		if err != nil {
			return fmt.Errorf("not authenticated: %w", err)
		}

		limit, _ := cmd.Flags().GetInt("limit")

		client := NewAPIClientFromProfile(profile)
		repos, err := client.GetRepositories(limit)
		if err != nil {
			return fmt.Errorf("failed to list repositories: %w", err)
		}

		if len(repos) == 0 {
			Info("No repositories synced yet. Run 'flynchctl repos sync' first.")
			return nil
		}

		return RenderRepositories(repos, viper.GetString("output"))
	},
}

var reposSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh repository snapshots from GitHub",
	Long:  `Fetch the current state of your public GitHub repositories and store fresh snapshots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := GetCurrentProfile()
		if err != nil {
			return fmt.Errorf("not authenticated: %w", err)
		}

		client := NewAPIClientFromProfile(profile)

		fmt.Println("Syncing repositories from GitHub...")
		result, err := client.SyncRepositories()
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		Success("Synced %d repositories (%d stale snapshots pruned)", result.Processed, result.Pruned)
		return nil
	},
}

var reposStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show GitHub connection status",
	Long:  `Display whether a GitHub account is linked and when it was last synced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := GetCurrentProfile()
		if err != nil {
			return fmt.Errorf("not authenticated: %w", err)
		}

		client := NewAPIClientFromProfile(profile)
		status, err := client.GitHubStatus()
		if err != nil {
			return fmt.Errorf("failed to fetch status: %w", err)
		}

		if !status.Connected {
			fmt.Println("GitHub: Not connected")
			fmt.Println("Visit /api/auth/github on the server while logged in to connect.")
			return nil
		}

		fmt.Printf("GitHub: ✓ Connected as %s\n", status.ExternalLogin)
		fmt.Printf("Repositories: %d\n", status.RepositoryCount)
		if status.LastSyncedAt != nil && !status.LastSyncedAt.IsZero() {
			fmt.Printf("Last synced: %s\n", status.LastSyncedAt.Format("2006-01-02 15:04:05"))
		}

		return nil
	},
}
