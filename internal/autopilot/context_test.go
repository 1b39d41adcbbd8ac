package autopilot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talentops/autopilot/internal/db"
)

func TestPrimaryEmail(t *testing.T) {
	assert.Empty(t, primaryEmail(nil))
	assert.Empty(t, primaryEmail([]db.Contact{{FullName: "No Email"}}))

	// Primary wins over order.
	contacts := []db.Contact{
		{Emails: []db.ContactEmail{{Address: "second@example.com"}}},
		{Emails: []db.ContactEmail{{Address: "first@example.com", IsPrimary: true}}},
	}
	assert.Equal(t, "first@example.com", primaryEmail(contacts))

	// No primary flags: first address wins.
	contacts = []db.Contact{
		{Emails: []db.ContactEmail{{Address: "a@example.com"}, {Address: "b@example.com"}}},
	}
	assert.Equal(t, "a@example.com", primaryEmail(contacts))
}

func TestContactAddresses(t *testing.T) {
	contacts := []db.Contact{
		{Emails: []db.ContactEmail{{Address: "a@example.com"}, {Address: ""}}},
		{Emails: []db.ContactEmail{{Address: "b@example.com"}}},
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, contactAddresses(contacts))
	assert.Nil(t, contactAddresses(nil))
}
