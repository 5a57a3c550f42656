package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gochat/internal/config"
	"github.com/Tyrowin/gochat/internal/credentials"
)

var checkCredentialsCmd = &cobra.Command{
	Use:   "check-credentials [file]",
	Short: "Validate a credential file",
	Long: `Load a credential file the way the server does and report what it holds,
without starting the server. The file defaults to chat.credentials_file from
the configuration.

Examples:
  # Check the configured file
  gochat check-credentials

  # Check a specific file
  gochat check-credentials /etc/gochat/users.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheckCredentials,
}

func runCheckCredentials(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return err
		}
		path = cfg.Chat.CredentialsFile
	}

	store, stats, err := credentials.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s: %d users\n", path, store.Len())
	if len(stats.Duplicates) > 0 {
		_, _ = fmt.Fprintf(out, "  duplicate usernames (last entry wins): %s\n", strings.Join(stats.Duplicates, ", "))
	}
	if len(stats.Malformed) > 0 {
		lines := make([]string, len(stats.Malformed))
		for i, n := range stats.Malformed {
			lines[i] = fmt.Sprint(n)
		}
		_, _ = fmt.Fprintf(out, "  lines without a colon (ignored): %s\n", strings.Join(lines, ", "))
	}
	return nil
}
