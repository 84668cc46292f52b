package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quorumlabs/roundtable/internal/archive"
	"github.com/quorumlabs/roundtable/internal/config"
	"github.com/quorumlabs/roundtable/internal/coordinator"
	"github.com/quorumlabs/roundtable/internal/otel"
	"github.com/quorumlabs/roundtable/internal/phases"
	"github.com/quorumlabs/roundtable/internal/room"
	"github.com/quorumlabs/roundtable/internal/scheduler"
	"github.com/quorumlabs/roundtable/pkg/models"
)

// scenario is the YAML shape accepted by `roundtable run`. Steps are executed
// in order against a fresh session; denied turns and failed advances are
// reported but do not abort the run.
type scenario struct {
	Objective    string            `yaml:"objective"`
	Workspace    string            `yaml:"workspace"`
	Participants map[string]string `yaml:"participants"` // role -> agent id
	PhasesFile   string            `yaml:"phases"`       // optional, relative to the scenario file

	Script []scenarioStep `yaml:"script"`
}

type scenarioStep struct {
	Agent  string `yaml:"agent"`
	Action string `yaml:"action"` // speak, complete_turn, escalate, advance, decision, artifact, state

	// decision fields
	Decision  string   `yaml:"decision,omitempty"`
	Reasoning string   `yaml:"reasoning,omitempty"`
	Impact    string   `yaml:"impact,omitempty"`
	Affected  []string `yaml:"affected,omitempty"`

	// artifact fields
	Bucket string `yaml:"bucket,omitempty"`
	Path   string `yaml:"path,omitempty"`

	// state field
	State string `yaml:"state,omitempty"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Objective == "" {
		return nil, errors.New("scenario: objective required")
	}
	if len(sc.Participants) == 0 {
		return nil, errors.New("scenario: participants required")
	}
	return &sc, nil
}

func newRunCmd() *cobra.Command {
	var httpAddr string
	var noArchive bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scripted collaboration session and print its minutes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home := config.MustHomeFrom(ctx)
			log := slog.With("component", "run")

			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}

			phaseList := phases.Default()
			if sc.PhasesFile != "" {
				p := sc.PhasesFile
				if !filepath.IsAbs(p) {
					p = filepath.Join(filepath.Dir(args[0]), p)
				}
				phaseList, err = phases.Load(p)
				if err != nil {
					return err
				}
			}

			hub := room.NewHub()
			coord := coordinator.New(coordinator.NewMemoryRegistry(), scheduler.New())
			coord.Hub = hub

			if httpAddr != "" {
				metricsHandler, err := otel.InitMeterProvider(ctx, "roundtable")
				if err != nil {
					return err
				}
				if err := otel.InitMetrics(ctx); err != nil {
					return err
				}
				mux := http.NewServeMux()
				mux.Handle("/events", hub.Handler())
				mux.Handle("/metrics", metricsHandler)
				srv := &http.Server{Addr: httpAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("http server", "error", err)
					}
				}()
				defer func() { _ = srv.Close() }()
				log.Info("serving", "addr", httpAddr, "endpoints", "/events /metrics")
			}

			sess, err := coord.InitializeSession(sc.Objective, sc.Workspace, sc.Participants, phaseList)
			if err != nil {
				return err
			}
			log.Info("session started",
				"session", sess.SessionID, "room", sess.RoomID,
				"phase", sess.Phases[0].Name, "speaker", sess.Turns.CurrentSpeaker)

			for i, step := range sc.Script {
				if err := runStep(cmd, coord, sess.SessionID, i, step); err != nil {
					return err
				}
			}

			minutes, err := coord.GenerateMinutes(sess.SessionID)
			if err != nil {
				return err
			}
			renderMinutes(cmd.OutOrStdout(), minutes)

			if !noArchive {
				final, err := coord.GetSession(sess.SessionID)
				if err != nil {
					return err
				}
				st, err := archive.Open(home)
				if err != nil {
					return err
				}
				defer func() { _ = st.Close() }()
				if err := st.SaveSession(ctx, final); err != nil {
					return err
				}
				log.Info("session archived", "session", sess.SessionID, "home", home)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve /events (SSE) and /metrics on this address during the run")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip archiving the finished session")
	return cmd
}

func runStep(cmd *cobra.Command, coord *coordinator.Coordinator, sessionID string, i int, step scenarioStep) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch step.Action {
	case models.TurnKindSpeak, models.TurnKindComplete, models.TurnKindEscalate:
		res, err := coord.RequestTurn(sessionID, step.Agent, step.Action)
		if err != nil {
			return fmt.Errorf("step %d (%s %s): %w", i, step.Agent, step.Action, err)
		}
		outcome := "granted"
		if !res.Granted {
			outcome = res.Code
		}
		otel.RecordTurnRequest(ctx, step.Action, outcome)
		if step.Action == models.TurnKindEscalate && res.Granted {
			otel.RecordEscalation(ctx, step.Agent)
		}
		if res.Granted {
			_, _ = fmt.Fprintf(out, "[%d] %s: %s granted\n", i, step.Agent, step.Action)
		} else {
			_, _ = fmt.Fprintf(out, "[%d] %s: %s denied (%s): %s\n", i, step.Agent, step.Action, res.Code, res.Reason)
			if res.QueuePosition > 0 {
				_, _ = fmt.Fprintf(out, "    queued at position %d, estimated wait %s\n", res.QueuePosition, res.WaitEstimate)
			}
		}
		if step.Action == models.TurnKindComplete && res.Granted {
			if sess, err := coord.GetSession(sessionID); err == nil && len(sess.Turns.History) > 0 {
				last := sess.Turns.History[len(sess.Turns.History)-1]
				otel.RecordTurnDuration(ctx, last.AgentID, last.EndedAt.Sub(last.StartedAt))
			}
		}

	case "advance":
		res, err := coord.AdvancePhase(sessionID, step.Agent)
		if err != nil {
			return fmt.Errorf("step %d (advance): %w", i, err)
		}
		if res.Success {
			otel.RecordPhaseAdvance(ctx, res.NewPhase, "advanced")
			if res.NewStatus == models.SessionCompleted {
				_, _ = fmt.Fprintf(out, "[%d] session completed\n", i)
			} else {
				_, _ = fmt.Fprintf(out, "[%d] advanced to %s (speaker %s)\n", i, res.NewPhase, res.Speaker)
			}
		} else {
			otel.RecordPhaseAdvance(ctx, res.NewPhase, res.Code)
			_, _ = fmt.Fprintf(out, "[%d] advance denied (%s): %v\n", i, res.Code, res.Reasons)
		}

	case "decision":
		rec, err := coord.RecordDecision(sessionID, step.Agent, step.Decision, step.Reasoning, step.Impact, step.Affected)
		if err != nil {
			return fmt.Errorf("step %d (decision): %w", i, err)
		}
		otel.RecordDecision(ctx, rec.Impact)
		_, _ = fmt.Fprintf(out, "[%d] decision %s recorded by %s\n", i, rec.DecisionID, rec.Maker)

	case "artifact":
		if err := coord.RecordArtifact(sessionID, step.Bucket, step.Path); err != nil {
			return fmt.Errorf("step %d (artifact): %w", i, err)
		}
		_, _ = fmt.Fprintf(out, "[%d] artifact %s: %s\n", i, step.Bucket, step.Path)

	case "state":
		if err := coord.UpdateWorkState(sessionID, step.Agent, step.State); err != nil {
			return fmt.Errorf("step %d (state): %w", i, err)
		}
		_, _ = fmt.Fprintf(out, "[%d] %s is now %s\n", i, step.Agent, step.State)

	case "wait":
		// Scenario pacing only; scripted runs rarely need real time to pass.
		time.Sleep(10 * time.Millisecond)

	default:
		return fmt.Errorf("step %d: unknown action %q", i, step.Action)
	}
	return nil
}
