package autopilot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talentops/autopilot/internal/agent"
	"github.com/talentops/autopilot/internal/db"
	"github.com/talentops/autopilot/internal/fields"
)

// Tool names the executor is allowed to use. The send tool doubles as the
// ground truth for "did we message the applicant" during validation.
const (
	ToolExtraFieldsGet = "core.extra_fields.GET"
	ToolExtraFieldsPut = "core.extra_fields.PUT"
	ToolMessagesGet    = "core.comms.email_messages.GET"
	ToolSendMessage    = "core.comms.email_messages.POST"
	ToolApplicantPut   = "recruiting.applicants.PUT"
	ToolContactsGet    = "crm.contacts.GET"
	ToolContactsPost   = "crm.contacts.POST"
	ToolContactLink    = "recruiting.applicant_contacts.POST"
	ToolWebSearch      = "web_search"
)

// preloadTools returns the tool allow-list for one executor run.
func preloadTools(webSearch bool) []string {
	tools := []string{
		ToolExtraFieldsGet,
		ToolExtraFieldsPut,
		ToolMessagesGet,
		ToolSendMessage,
		ToolApplicantPut,
		ToolContactsGet,
		ToolContactsPost,
		ToolContactLink,
	}
	if webSearch {
		tools = append(tools, ToolWebSearch)
	}
	return tools
}

// promptPayload is the structured context handed to the executor as the
// user message. Field names are part of the executor contract.
type promptPayload struct {
	ApplicantID      int64              `json:"applicant_id"`
	CRMContacts      []db.Contact       `json:"crm_contacts"`
	ExtraFields      []fields.Field     `json:"extra_fields"`
	ThreadsSummary   []db.ThreadSummary `json:"threads_summary"`
	PreferredChannel *db.Channel        `json:"preferred_channel,omitempty"`
}

// buildMessages assembles the two-message instruction for one executor
// run: a system message carrying role, rules and pre-resolved state ids,
// and a user message carrying the applicant context as JSON.
func buildMessages(uc *unitContext, states stateIDs) []agent.Message {
	var sys strings.Builder

	fmt.Fprintf(&sys, "You are %s, handling recruiting for team %q.\n",
		uc.Owner.Name, uc.TeamName)
	sys.WriteString("You act ONLY through the provided tools. Never invent data, never claim an action you did not perform with a tool call.\n")
	sys.WriteString("Your output is tool calls, not a report: never hand back prose describing what you would do, suggested payloads, or a summary of the current state as the final product.\n\n")

	sys.WriteString("Your task: move this application forward.\n")
	sys.WriteString("1. Read any new applicant messages and extract answers into the extra fields (" + ToolExtraFieldsPut + ").\n")
	sys.WriteString("2. If required fields are still missing, write the applicant a short, friendly email asking for exactly those values (" + ToolSendMessage + ").\n")
	sys.WriteString("3. Keep CRM contact data current when the applicant shares new names, addresses or numbers.\n\n")

	if len(uc.Threads) > 0 {
		sys.WriteString("Conversation threads exist. Reply within the existing thread, reference what the applicant already told you, and do not repeat questions that were answered.\n")
	} else {
		sys.WriteString("No conversation exists yet. Open with a brief introduction of yourself and why you are reaching out, then ask for the missing values.\n")
	}
	if uc.Channel != nil {
		fmt.Fprintf(&sys, "Send messages via channel %d (%s), sender %s.\n",
			uc.Channel.ID, uc.Channel.Name, uc.Channel.Sender)
	}

	sys.WriteString("\nThere are exactly four possible outcomes; resolve this run to ONE of them:\n")
	sys.WriteString("A) COMPLETE: every required field is filled and a CRM contact is linked. Mark the application completed.\n")
	sys.WriteString("B) WAITING, FIRST CONTACT: required fields are missing and no thread exists. Send a message asking for them, then set the waiting state.\n")
	sys.WriteString("C) NEW INFORMATION: the applicant replied with usable values. Write them into the extra fields FIRST, then either complete (nothing left) or reply in the thread asking for the rest.\n")
	sys.WriteString("D) STILL WAITING: no new usable information. Change nothing, send nothing, finish.\n")

	sys.WriteString("\nState handling via " + ToolApplicantPut + ":\n")
	fmt.Fprintf(&sys, "- After sending a question and while answers are outstanding, set auto_pilot_state_id=%d (waiting for applicant).\n", states.waiting)
	sys.WriteString("- Never set the waiting state without having sent a message first in this same run.\n")
	fmt.Fprintf(&sys, "- Only when EVERY required field is filled, set auto_pilot_state_id=%d and auto_pilot_completed_at to now.\n", states.completed)
	sys.WriteString("- Never disable auto_pilot unless the applicant explicitly asks to stop being contacted.\n")

	payload := promptPayload{
		ApplicantID:      uc.Applicant.ID,
		CRMContacts:      uc.Contacts,
		ExtraFields:      uc.Fields,
		ThreadsSummary:   uc.Threads,
		PreferredChannel: uc.Channel,
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		// Payload is built from plain structs; this cannot fail in practice.
		raw = []byte(fmt.Sprintf(`{"applicant_id": %d}`, uc.Applicant.ID))
	}

	user := "Process this application. Current context:\n\n" + string(raw) +
		"\n\nStart with tool calls."

	return []agent.Message{
		{Role: agent.RoleSystem, Content: sys.String()},
		{Role: agent.RoleUser, Content: user},
	}
}
