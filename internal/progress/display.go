// Package progress provides operator-facing progress output for autopilot runs.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Display writes per-unit progress lines. Decorations are only emitted on a
// terminal; cron output stays plain.
type Display struct {
	out      io.Writer
	quiet    bool
	decorate bool
	mu       sync.Mutex
}

// New creates a display writing to stdout.
func New(quiet bool) *Display {
	return &Display{
		out:      os.Stdout,
		quiet:    quiet,
		decorate: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// NewWriter creates a display writing to w, for tests and captured output.
func NewWriter(w io.Writer, quiet bool) *Display {
	return &Display{out: w, quiet: quiet}
}

func (d *Display) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format+"\n", args...)
}

func (d *Display) mark(decorated, plain string) string {
	if d.decorate {
		return decorated
	}
	return plain
}

// Info prints an informational line.
func (d *Display) Info(msg string) {
	if d.quiet {
		return
	}
	d.printf("%s", msg)
}

// Warn prints a warning line.
func (d *Display) Warn(msg string) {
	d.printf("%s %s", d.mark("⚠️", "WARN:"), msg)
}

// Error prints an error line.
func (d *Display) Error(msg string) {
	d.printf("%s %s", d.mark("❌", "ERROR:"), msg)
}

// RunStart announces the start of a job run.
func (d *Display) RunStart(dryRun bool) {
	if dryRun {
		d.Warn("dry-run: no data will be modified")
	}
}

// UnitStart announces the start of one applicant's processing.
func (d *Display) UnitStart(id int64, owner, team, model, state string, contacts, fieldCount, threads int) {
	if d.quiet {
		return
	}
	d.printf(strings.Repeat("━", 40))
	d.printf("%s applicant #%d → owner: %s", d.mark("🤖", ">>"), id, owner)
	d.printf("  team: %s | model: %s | state: %s", orDash(team), model, orDash(state))
	d.printf("  contacts: %d | fields: %d | threads: %d", contacts, fieldCount, threads)
}

// Scenario prints the classification outcome for a unit.
func (d *Display) Scenario(scenario, reason string, missing int) {
	if d.quiet {
		return
	}
	d.printf("  scenario: %s (%s) | missing required fields: %d", scenario, reason, missing)
}

// Iteration prints one tool-loop iteration. Matches the agent.Options
// OnIteration signature.
func (d *Display) Iteration(iteration int, toolNames []string, outputLen int) {
	if d.quiet {
		return
	}
	tools := "(no tools)"
	if len(toolNames) > 0 {
		tools = strings.Join(toolNames, ", ")
	}
	d.printf("    iter %d: %s", iteration, tools)
}

// UnitSkipped prints why a unit was skipped.
func (d *Display) UnitSkipped(id int64, reason string) {
	if d.quiet {
		return
	}
	d.printf("%s applicant #%d: skipped (%s)", d.mark("⏭️", "-"), id, reason)
}

// UnitCompleted prints a completion line.
func (d *Display) UnitCompleted(id int64) {
	if d.quiet {
		return
	}
	d.printf("  %s applicant #%d completed", d.mark("✅", "OK:"), id)
}

// UnitResult prints the agent run summary for a unit.
func (d *Display) UnitResult(iterations int, toolNames []string, emailSent bool) {
	if d.quiet {
		return
	}
	tools := "(none)"
	if len(toolNames) > 0 {
		tools = strings.Join(toolNames, ", ")
	}
	sent := "no"
	if emailSent {
		sent = "yes"
	}
	d.printf("  iterations: %d | tools: %s | message sent: %s", iterations, tools, sent)
}

// DeadlineReached announces that the time budget ran out.
func (d *Display) DeadlineReached(budget time.Duration) {
	d.Warn(fmt.Sprintf("time budget reached (%s); remaining units roll over to the next run", budget))
}

// LockBusy announces that another run holds the lock.
func (d *Display) LockBusy() {
	d.Warn("already running (lock held), nothing to do")
}

// RunComplete prints the final summary.
func (d *Display) RunComplete(processed int, elapsed time.Duration) {
	if d.quiet {
		return
	}
	if processed == 0 {
		d.printf("%s no pending autopilot applicants found", d.mark("✅", "OK:"))
		return
	}
	d.printf("%s done: %d applicant(s) in %s", d.mark("✅", "OK:"), processed, elapsed.Round(time.Second))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
