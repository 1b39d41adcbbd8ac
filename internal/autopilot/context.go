package autopilot

import (
	"context"

	"github.com/talentops/autopilot/internal/db"
	"github.com/talentops/autopilot/internal/fields"
)

// unitContext is everything loaded about one applicant before
// classification. Every slice may be empty: context loading degrades to
// empty rather than failing the unit, so a broken sub-query costs detail,
// not the run.
type unitContext struct {
	Applicant *db.Applicant
	Owner     *db.User
	TeamName  string
	StateCode string
	StateName string
	Contacts  []db.Contact
	Fields    []fields.Field
	Threads   []db.ThreadSummary
	Channel   *db.Channel
}

// loadContext assembles the unit context. Sub-loader failures are reported
// on the display and leave the corresponding part empty.
func (r *Runner) loadContext(ctx context.Context, a *db.Applicant, owner *db.User) *unitContext {
	uc := &unitContext{Applicant: a, Owner: owner}

	if a.TeamID != nil {
		if team, err := r.store.GetTeam(ctx, *a.TeamID); err == nil && team != nil {
			uc.TeamName = team.Name
		}
		if channel, err := r.store.PreferredChannel(ctx, *a.TeamID); err == nil {
			uc.Channel = channel
		}
	}

	if a.AutoPilotStateID != nil {
		if state, err := r.store.StateByID(ctx, *a.AutoPilotStateID); err == nil && state != nil {
			uc.StateCode = state.Code
			uc.StateName = state.Name
		}
	}

	var err error
	if uc.Contacts, err = r.store.ContactsForApplicant(ctx, a.ID); err != nil {
		r.disp.Warn("load contacts: " + err.Error())
		uc.Contacts = nil
	}
	if uc.Fields, err = r.store.FieldSnapshot(ctx, a.ID); err != nil {
		r.disp.Warn("load extra fields: " + err.Error())
		uc.Fields = nil
	}
	if uc.Threads, err = r.store.ThreadsForApplicant(ctx, a.ID, maxThreadSummaries); err != nil {
		r.disp.Warn("load threads: " + err.Error())
		uc.Threads = nil
	}

	return uc
}

// primaryEmail returns the first reachable email address, preferring ones
// marked primary.
func primaryEmail(contacts []db.Contact) string {
	for _, c := range contacts {
		for _, e := range c.Emails {
			if e.IsPrimary && e.Address != "" {
				return e.Address
			}
		}
	}
	for _, c := range contacts {
		for _, e := range c.Emails {
			if e.Address != "" {
				return e.Address
			}
		}
	}
	return ""
}

// contactAddresses collects every known email address across all linked
// contacts, for thread matching.
func contactAddresses(contacts []db.Contact) []string {
	var out []string
	for _, c := range contacts {
		for _, e := range c.Emails {
			if e.Address != "" {
				out = append(out, e.Address)
			}
		}
	}
	return out
}
