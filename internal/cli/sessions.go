package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quorumlabs/roundtable/internal/archive"
	"github.com/quorumlabs/roundtable/internal/config"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect archived sessions",
	}
	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := archive.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			sums, err := st.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sums) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No archived sessions.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SESSION\tSTATUS\tSTARTED\tAGENTS\tDECISIONS\tTURNS\tOBJECTIVE")
			for _, s := range sums {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					s.SessionID, s.Status, s.StartedAt.Format(time.RFC3339),
					s.Participants, s.Decisions, s.Turns, s.Objective)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum sessions to list (0 = default)")
	return cmd
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print an archived session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := archive.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			sess, err := st.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(sess, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete an archived session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := archive.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}
