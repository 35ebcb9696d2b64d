package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cinelist/cmd/cli/authentication"
	"cinelist/cmd/cli/command/client"
	"cinelist/internal/microservices/http-api/dto"
)

// auth.go handles login, registration and logout. Tokens live in the OS keyring.

const requestTimeout = 15 * time.Second

// authCmd represents the auth command for authentication related subcommands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Authenticate with the cinelist API server. Supports login, registration, logout.`,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req dto.RegisterRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		req.Email, _ = cmd.Flags().GetString("email")

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		resp, err := client.NewHTTPClient(apiURL).Register(ctx, req)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		color.Green("✓ Registration successful! Please login to continue.")
		fmt.Printf("UserID: %s\n", resp.UserID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login with your username or email",
	RunE: func(cmd *cobra.Command, args []string) error {
		identifier, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		creds, err := client.NewHTTPClient(apiURL).Login(ctx, identifier, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := authentication.StoreTokens(creds); err != nil {
			return fmt.Errorf("store credentials: %w", err)
		}

		color.Green("✓ Logged in as %s", creds.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and revoke the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authenticatedClient()
		if err != nil && !errors.Is(err, authentication.ErrNotLoggedIn) {
			return err
		}
		if httpClient != nil {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			// the local session is dropped even if the server is unreachable
			if err := httpClient.Logout(ctx); err != nil {
				logger.Warn("logout_revoke_failed", "error", err)
			}
		}
		if err := authentication.DeleteTokens(); err != nil {
			return fmt.Errorf("clear credentials: %w", err)
		}
		color.Green("✓ Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.GetTokens()
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", creds.Username, creds.UserID)
		return nil
	},
}

// authenticatedClient loads the keyring session into an HTTP client.
// Rotated tokens are written back to the keyring.
func authenticatedClient() (*client.HTTPClient, error) {
	creds, err := authentication.GetTokens()
	if err != nil {
		return nil, err
	}
	httpClient := client.NewHTTPClient(apiURL)
	httpClient.SetCredentials(creds, func(updated *authentication.StoredCredentials) {
		if err := authentication.StoreTokens(updated); err != nil {
			logger.Warn("store_refreshed_tokens_failed", "error", err)
		}
	})
	return httpClient, nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)

	registerCmd.Flags().StringP("username", "u", "", "Username for the new account")
	registerCmd.Flags().StringP("password", "p", "", "Password for the new account")
	registerCmd.Flags().StringP("email", "e", "", "Email address for the new account")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("password")
	registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringP("username", "u", "", "Username or email")
	loginCmd.Flags().StringP("password", "p", "", "Password for the account")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
}
