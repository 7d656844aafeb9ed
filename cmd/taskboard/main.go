package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard/client"
	"github.com/taskboard/taskboard/internal/config"
)

var (
	cfg        *config.Config
	serviceURL string
	tokenStore string
	tokenPath  string
	debug      bool
	asJSON     bool
)

const (
	commandTimeout = 15 * time.Second
	userAgent      = "taskboard-cli"
)

var errNotSignedIn = errors.New("not signed in; run `taskboard login` first")

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "taskboard",
		Short:        "Taskboard CLI for projects, boards and time tracking",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logger
			config.InitLogger()

			loaded, err := config.New()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("service-url") {
				loaded.APIURL = serviceURL
			}
			if flags.Changed("token-store") {
				loaded.TokenStore = tokenStore
				loaded.TokenPath = ""
			}
			if flags.Changed("token-path") {
				loaded.TokenPath = tokenPath
			}
			if err := loaded.ResolveDefaults(); err != nil {
				return err
			}
			cfg = loaded

			// Set log level based on debug flag
			if debug {
				config.SetLogLevel(zerolog.DebugLevel)
				_ = os.Setenv("TASKBOARD_DEBUG", "true")
				log.Debug().Msg("debug logging enabled")
			} else {
				config.SetLogLevel(cfg.Level())
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&serviceURL, "service-url", "", "Base URL of the task service (env TASKBOARD_API_URL)")
	rootCmd.PersistentFlags().StringVar(&tokenStore, "token-store", "", "Where the session token is kept: file, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&tokenPath, "token-path", "", "Token file or database path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	// Session
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newRegisterCmd())

	// Projects and tasks
	rootCmd.AddCommand(newProjectsCmd())
	rootCmd.AddCommand(newCreateProjectCmd())
	rootCmd.AddCommand(newBoardCmd())
	rootCmd.AddCommand(newCreateTaskCmd())
	rootCmd.AddCommand(newAdvanceCmd())
	rootCmd.AddCommand(newSetStatusCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newAssignCmd())
	rootCmd.AddCommand(newUnassignCmd())

	// Team and time
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newLogTimeCmd())

	return rootCmd
}

// openClient builds an SDK client over the configured token store. The
// session is not restored.
func openClient() (*client.Client, error) {
	store, err := client.OpenTokenStore(cfg.TokenStore, cfg.TokenPath)
	if err != nil {
		return nil, err
	}
	return client.New(cfg.APIURL,
		client.WithHTTPTimeout(cfg.HTTPTimeout),
		client.WithRetry(cfg.FetchRetries),
		client.WithTokenStore(store),
		client.WithDebugLogging(debug),
		client.WithUserAgent(userAgent),
	), nil
}

// signedIn opens a client and restores the persisted session.
func signedIn(ctx context.Context) (*client.Client, client.SessionSnapshot, error) {
	c, err := openClient()
	if err != nil {
		return nil, client.SessionSnapshot{}, err
	}
	snap, err := c.Restore(ctx)
	if err != nil {
		_ = c.Close()
		return nil, snap, err
	}
	if !snap.Authenticated() {
		_ = c.Close()
		return nil, snap, errNotSignedIn
	}
	log.Debug().Int64("user_id", snap.UserID()).Str("role", string(snap.Identity.Role)).Bool("degraded", snap.Degraded).Msg("session restored")
	return c, snap, nil
}

// requireCapability refuses an action the signed-in role is not offered.
func requireCapability(c *client.Client, snap client.SessionSnapshot, capability client.Capability) error {
	if c.Capabilities().Has(capability) {
		return nil
	}
	return fmt.Errorf("role %s may not %s", snap.Identity.Role, capability)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return id, nil
}
