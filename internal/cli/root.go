package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quorumlabs/roundtable/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "roundtable",
		Short:        "Roundtable — turn-based coordination for multi-agent collaboration sessions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override Roundtable home directory (default: ~/.roundtable, env: ROUNDTABLE_HOME)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newMinutesCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
