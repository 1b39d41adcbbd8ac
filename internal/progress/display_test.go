package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplay_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	d := NewWriter(&buf, false)

	d.UnitStart(42, "Dana Recruiter", "Talent", "gpt-5.2", "data_collection", 1, 3, 2)
	d.Scenario("C", "new_inbound", 2)
	d.Iteration(1, []string{"core.extra_fields.GET"}, 120)
	d.UnitResult(3, []string{"core.extra_fields.GET", "core.comms.email_messages.POST"}, true)

	out := buf.String()
	assert.Contains(t, out, "applicant #42")
	assert.Contains(t, out, "Dana Recruiter")
	assert.Contains(t, out, "scenario: C (new_inbound)")
	assert.Contains(t, out, "iter 1: core.extra_fields.GET")
	assert.Contains(t, out, "message sent: yes")
	// No TTY: the decorated marks stay off.
	assert.NotContains(t, out, "🤖")
}

func TestDisplay_QuietSuppressesProgress(t *testing.T) {
	var buf bytes.Buffer
	d := NewWriter(&buf, true)

	d.Info("hello")
	d.UnitStart(42, "Dana", "", "gpt-5.2", "", 0, 0, 0)
	d.Scenario("A", "complete", 0)
	d.UnitCompleted(42)
	d.RunComplete(1, 0)
	assert.Empty(t, buf.String())

	// Warnings still come through.
	d.Warn("completion reverted")
	assert.True(t, strings.Contains(buf.String(), "completion reverted"))
}

func TestDisplay_RunComplete(t *testing.T) {
	var buf bytes.Buffer
	d := NewWriter(&buf, false)

	d.RunComplete(0, 0)
	assert.Contains(t, buf.String(), "no pending autopilot applicants")

	buf.Reset()
	d.RunComplete(3, 0)
	assert.Contains(t, buf.String(), "done: 3 applicant(s)")
}
