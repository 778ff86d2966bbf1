package cli

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(profileCmd)

	// Profile subcommands
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileSelectCmd)
	profileCmd.AddCommand(profileShowCmd)

	// Login command flags
	loginCmd.Flags().StringP("identifier", "i", "", "Username or email address")
	loginCmd.Flags().StringP("password", "p", "", "Password (not recommended, use interactive prompt)")
	loginCmd.Flags().StringP("server", "s", "http://localhost:8080", "Server URL")
	loginCmd.Flags().StringP("profile", "", "default", "Profile name")

	// Register command flags
	registerCmd.Flags().StringP("username", "u", "", "Username")
	registerCmd.Flags().StringP("email", "e", "", "Email address")
	registerCmd.Flags().StringP("full-name", "n", "", "Full name")
	registerCmd.Flags().StringP("server", "s", "http://localhost:8080", "Server URL")
	registerCmd.Flags().StringP("profile", "", "default", "Profile name")

	// Profile create flags
	profileCreateCmd.Flags().StringP("server", "s", "", "Server URL")
	profileCreateCmd.Flags().StringP("token", "t", "", "API Token")
	_ = profileCreateCmd.MarkFlagRequired("server")
	_ = profileCreateCmd.MarkFlagRequired("token")
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Manage authentication and user profiles for the flynch API.`,
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(label string) (string, error) {
	fmt.Print(label)
	bytePassword, err := term.ReadPassword(syscall.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println() // New line after password input
	return string(bytePassword), nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the flynch API",
	Long: `Authenticate with the flynch API using a username or email plus password.

This command will prompt for credentials if not provided via flags.
The session token will be stored for future use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		identifier, _ := cmd.Flags().GetString("identifier")
		password, _ := cmd.Flags().GetString("password")
		serverURL, _ := cmd.Flags().GetString("server")
		profileName, _ := cmd.Flags().GetString("profile")

		// Prompt for identifier if not provided
		if identifier == "" {
			fmt.Print("Username or email: ")
			_, _ = fmt.Scanln(&identifier)
		}

		// Prompt for password if not provided
		if password == "" {
			var err error
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		// Validate inputs
		if identifier == "" {
			return fmt.Errorf("username or email is required")
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		// Create API client
		client := NewAPIClient(serverURL, "")

		// Attempt login
		fmt.Printf("Authenticating with %s...\n", serverURL)
		loginResp, err := client.Login(identifier, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		// Create profile
		profile := Profile{
			Name:      profileName,
			ServerURL: serverURL,
			Token:     loginResp.AccessToken,
		}

		if err := AddProfile(profile); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		fmt.Printf("✓ Successfully authenticated as %s\n", loginResp.User.Username)
		fmt.Printf("✓ Profile '%s' saved (token expires in %d minutes)\n", profileName, loginResp.ExpiresIn/60)

		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long: `Create a new flynch account and log in with it.

This command will prompt for any credentials not provided via flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		fullName, _ := cmd.Flags().GetString("full-name")
		serverURL, _ := cmd.Flags().GetString("server")
		profileName, _ := cmd.Flags().GetString("profile")

		if username == "" {
			fmt.Print("Username: ")
			_, _ = fmt.Scanln(&username)
		}
		if email == "" {
			fmt.Print("Email: ")
			_, _ = fmt.Scanln(&email)
		}

		password, err := promptPassword("Password (min 8 characters): ")
		if err != nil {
			return err
		}

		if username == "" || email == "" || password == "" {
			return fmt.Errorf("username, email, and password are required")
		}

		client := NewAPIClient(serverURL, "")

		user, err := client.Register(&RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
			FullName: fullName,
		})
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Printf("✓ Account '%s' created\n", user.Username)

		// Log straight in so the profile carries a usable token
		loginResp, err := client.Login(username, password)
		if err != nil {
			return fmt.Errorf("account created but login failed: %w", err)
		}

		profile := Profile{
			Name:      profileName,
			ServerURL: serverURL,
			Token:     loginResp.AccessToken,
		}

		if err := AddProfile(profile); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		fmt.Printf("✓ Profile '%s' saved\n", profileName)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Logout and remove the stored token",
	Long: `Remove the stored token for the specified profile.
If no profile is specified, removes the current default profile.
The server keeps no session state, so the token simply ages out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			// Get current profile
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			profileName = config.DefaultProfile
		}

		if profileName == "" {
			return fmt.Errorf("no profile specified and no default profile set")
		}

		if err := RemoveProfile(profileName); err != nil {
			return fmt.Errorf("failed to remove profile: %w", err)
		}

		fmt.Printf("✓ Profile '%s' removed\n", profileName)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long:  `Display current authentication status and active profile information.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := GetCurrentProfile()
		if err != nil {
			fmt.Println("Status: Not authenticated")
			fmt.Printf("Error: %s\n", err.Error())
			return nil
		}

		// A /auth/me round trip proves the token is still accepted.
		client := NewAPIClientFromProfile(profile)
		user, err := client.Me()
		if err != nil {
			fmt.Printf("Status: Token exists but was rejected (expired?)\n")
			fmt.Printf("Profile: %s\n", profile.Name)
			fmt.Printf("Server: %s\n", profile.ServerURL)
			fmt.Printf("Error: %s\n", err.Error())
			return nil
		}

		fmt.Printf("Status: ✓ Authenticated as %s\n", user.Username)
		fmt.Printf("Profile: %s\n", profile.Name)
		fmt.Printf("Server: %s\n", profile.ServerURL)

		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage authentication profiles",
	Long:  `Manage multiple authentication profiles for different environments.`,
}

var profileListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all profiles",
	Long:    `List all configured authentication profiles.`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := ListProfiles()
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}

		if len(profiles) == 0 {
			fmt.Println("No profiles configured")
			return nil
		}

		config, err := LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Println("Available profiles:")
		for _, profile := range profiles {
			prefix := "  "
			if profile.Name == config.DefaultProfile {
				prefix = "* "
			}

			fmt.Printf("%s%s\n", prefix, profile.Name)
			fmt.Printf("    Server: %s\n", profile.ServerURL)
		}

		return nil
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new profile",
	Long:  `Create a new authentication profile with specified credentials.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileName := args[0]
		serverURL, _ := cmd.Flags().GetString("server")
		token, _ := cmd.Flags().GetString("token")

		profile := Profile{
			Name:      profileName,
			ServerURL: serverURL,
			Token:     token,
		}

		if err := ValidateProfile(&profile); err != nil {
			return fmt.Errorf("invalid profile: %w", err)
		}

		// Test connection
		client := NewAPIClientFromProfile(&profile)
		if err := client.TestConnection(); err != nil {
			return fmt.Errorf("failed to connect to server: %w", err)
		}

		if err := AddProfile(profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		fmt.Printf("✓ Profile '%s' created successfully\n", profileName)
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:     "delete [name]",
	Short:   "Delete a profile",
	Long:    `Delete an authentication profile.`,
	Aliases: []string{"remove", "rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileName := args[0]

		if err := RemoveProfile(profileName); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}

		fmt.Printf("✓ Profile '%s' deleted\n", profileName)
		return nil
	},
}

var profileSelectCmd = &cobra.Command{
	Use:     "select [name]",
	Short:   "Select a profile as default",
	Long:    `Set the specified profile as the default for all operations.`,
	Aliases: []string{"switch", "use"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileName := args[0]

		if err := SetCurrentProfile(profileName); err != nil {
			return fmt.Errorf("failed to select profile: %w", err)
		}

		fmt.Printf("✓ Profile '%s' selected as default\n", profileName)
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile details",
	Long:  `Display detailed information about a profile.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		}

		var profile *Profile

		if profileName == "" {
			// Show current profile
			current, err := GetCurrentProfile()
			if err != nil {
				return fmt.Errorf("failed to get current profile: %w", err)
			}
			profile = current
		} else {
			// Show specific profile
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			p, exists := config.Profiles[profileName]
			if !exists {
				return fmt.Errorf("profile '%s' not found", profileName)
			}
			profile = &p
		}

		fmt.Printf("Profile: %s\n", profile.Name)
		fmt.Printf("Server: %s\n", profile.ServerURL)

		// Mask token
		if len(profile.Token) > 16 {
			fmt.Printf("Token: %s...%s\n",
				profile.Token[:8],
				strings.Repeat("*", len(profile.Token)-16)+profile.Token[len(profile.Token)-8:])
		} else if profile.Token != "" {
			fmt.Printf("Token: %s\n", strings.Repeat("*", len(profile.Token)))
		} else {
			fmt.Printf("Token: Not set\n")
		}

		return nil
	},
}
