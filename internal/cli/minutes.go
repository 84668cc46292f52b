package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/quorumlabs/roundtable/internal/archive"
	"github.com/quorumlabs/roundtable/internal/config"
	"github.com/quorumlabs/roundtable/internal/coordinator"
	"github.com/quorumlabs/roundtable/internal/scheduler"
	"github.com/quorumlabs/roundtable/pkg/models"
)

func newMinutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "minutes <session-id>",
		Short: "Render the minutes of an archived session",
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

			// Minutes are a projection over the snapshot, so an archived
			// session can be rehydrated into a throwaway registry.
			reg := coordinator.NewMemoryRegistry()
			reg.Put(sess)
			minutes, err := coordinator.New(reg, scheduler.New()).GenerateMinutes(sess.SessionID)
			if err != nil {
				return err
			}
			renderMinutes(cmd.OutOrStdout(), minutes)
			return nil
		},
	}
}

func renderMinutes(w io.Writer, m models.MinutesReport) {
	_, _ = fmt.Fprintf(w, "\nMinutes for %s\n", m.SessionID)
	_, _ = fmt.Fprintf(w, "  %s\n\n", m.Summary)

	_, _ = fmt.Fprintln(w, "Phases:")
	for _, p := range m.Phases {
		over := ""
		if p.Overtime {
			over = " (overtime)"
		}
		owner := p.Owner
		if owner == "" {
			owner = p.OwnerRole
		}
		_, _ = fmt.Fprintf(w, "  %-16s %-10s %-10s %s%s\n",
			p.Name, p.Outcome, owner, p.Duration.Round(time.Second), over)
	}

	if len(m.Decisions) > 0 {
		_, _ = fmt.Fprintln(w, "\nDecisions:")
		for _, d := range m.Decisions {
			_, _ = fmt.Fprintf(w, "  [%s] %s (%s, by %s)\n", d.Status, d.Decision, d.Impact, d.Maker)
		}
	}

	if !m.Artifacts.Empty() {
		_, _ = fmt.Fprintln(w, "\nArtifacts:")
		for _, g := range []struct {
			label string
			paths []string
		}{
			{"created", m.Artifacts.Created},
			{"modified", m.Artifacts.Modified},
			{"tested", m.Artifacts.Tested},
			{"documented", m.Artifacts.Documented},
		} {
			for _, p := range g.paths {
				_, _ = fmt.Fprintf(w, "  %-10s %s\n", g.label, p)
			}
		}
	}

	_, _ = fmt.Fprintln(w, "\nContributions:")
	for _, c := range m.Contributions {
		_, _ = fmt.Fprintf(w, "  %-12s %-12s turns=%d completed=%d active=%s\n",
			c.AgentID, c.Role, c.Turns, c.CompletedTurns, c.ActiveTime.Round(time.Second))
	}

	if len(m.Recommendations) > 0 {
		_, _ = fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range m.Recommendations {
			_, _ = fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	_, _ = fmt.Fprintln(w)
}
