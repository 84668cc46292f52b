package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	if root == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "sessions", "minutes"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNewRootCmd_versionFlag(t *testing.T) {
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Errorf("Version: got %q", root.Version)
	}
}

func TestNewRootCmd_hasHomeFlag(t *testing.T) {
	root := NewRootCmd("")
	if root.PersistentFlags().Lookup("home") == nil {
		t.Fatal("expected --home persistent flag")
	}
}

const testScenario = `objective: Ship the widget
workspace: /tmp/widget
participants:
  planner: p1
  implementer: p2
  tester: p3
script:
  - agent: p1
    action: decision
    decision: Use the existing widget frame
    impact: process
  - agent: p1
    action: artifact
    bucket: created
    path: plan.md
  - agent: p1
    action: complete_turn
  - agent: p1
    action: advance
  - agent: p1
    action: advance
  - agent: p1
    action: advance
  - agent: p1
    action: advance
`

func execute(t *testing.T, home string, args ...string) string {
	t.Helper()
	root := NewRootCmd("test")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append(args, "--home", home))
	if err := root.Execute(); err != nil {
		t.Fatalf("execute %v: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func TestRun_scenarioEndToEnd(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(testScenario), 0o644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, home, "run", path)
	for _, want := range []string{"session completed", "Minutes for", "Ship the widget", "plan.md"} {
		if !strings.Contains(out, want) {
			t.Errorf("run output missing %q:\n%s", want, out)
		}
	}

	listOut := execute(t, home, "sessions", "list")
	id := regexp.MustCompile(`sess-[0-9a-f]+`).FindString(listOut)
	if id == "" {
		t.Fatalf("sessions list should contain the archived session:\n%s", listOut)
	}
	if !strings.Contains(listOut, "completed") {
		t.Errorf("archived session should be completed:\n%s", listOut)
	}

	showOut := execute(t, home, "sessions", "show", id)
	if !strings.Contains(showOut, `"objective": "Ship the widget"`) {
		t.Errorf("sessions show output:\n%s", showOut)
	}

	minutesOut := execute(t, home, "minutes", id)
	if !strings.Contains(minutesOut, "Minutes for "+id) {
		t.Errorf("minutes output:\n%s", minutesOut)
	}

	delOut := execute(t, home, "sessions", "delete", id)
	if !strings.Contains(delOut, "Deleted session") {
		t.Errorf("delete output:\n%s", delOut)
	}
}

func TestRun_badScenario(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte("objective: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := NewRootCmd("test")
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"run", path, "--home", home})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for scenario without participants")
	}
}
