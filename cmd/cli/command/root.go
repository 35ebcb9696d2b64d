package command

// root.go defines the root command and the global flags shared by every subcommand.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cinelist/internal/config"
	"cinelist/internal/logging"
)

var (
	apiURL  string // Global flag for API server URL, overrides cfg.APIURL
	verbose bool

	cfg    = &config.ClientConfig{}
	logger = logging.Discard()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cinelist",
	Short: "cinelist - recommend movies and shows to your friends",
	Long: `cinelist lets you send movie and TV recommendations to other users and
follow up on the ones you received:
- Send recommendations and see what friends sent you
- Comment, rate and mark them read
- Watch your inbox update in realtime

Use "cinelist command --help" to see all available commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger = logging.NewWithWriter("debug", "text", os.Stderr)
		}
		loaded, err := config.LoadClientConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		if apiURL == "" {
			apiURL = cfg.APIURL
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API server URL (default $CINELIST_API_URL or http://localhost:8080/api)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}
