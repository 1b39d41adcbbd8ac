package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ContactEmail is one email address of a CRM contact.
type ContactEmail struct {
	Address   string `json:"email"`
	IsPrimary bool   `json:"is_primary"`
}

// ContactPhone is one phone number of a CRM contact.
type ContactPhone struct {
	Number    string `json:"number"`
	IsPrimary bool   `json:"is_primary"`
}

// Contact is a CRM contact linked to an applicant, with its reachable
// addresses. The json tags match the agent payload shape.
type Contact struct {
	ID       int64          `json:"contact_id"`
	FullName string         `json:"full_name"`
	Emails   []ContactEmail `json:"emails"`
	Phones   []ContactPhone `json:"phones"`
}

// ContactsForApplicant loads the linked CRM contacts with their email
// addresses and phone numbers.
func (d *DB) ContactsForApplicant(ctx context.Context, applicantID int64) ([]Contact, error) {
	rows, err := d.Query(ctx, `
		SELECT c.id, c.full_name
		FROM crm_contacts c
		JOIN applicant_contacts ac ON ac.contact_id = c.id
		WHERE ac.applicant_id = ?
		ORDER BY c.id ASC`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("query applicant contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.FullName); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range contacts {
		if contacts[i].Emails, err = d.contactEmails(ctx, contacts[i].ID); err != nil {
			return nil, err
		}
		if contacts[i].Phones, err = d.contactPhones(ctx, contacts[i].ID); err != nil {
			return nil, err
		}
	}
	return contacts, nil
}

func (d *DB) contactEmails(ctx context.Context, contactID int64) ([]ContactEmail, error) {
	rows, err := d.Query(ctx,
		"SELECT email, is_primary FROM contact_emails WHERE contact_id = ? ORDER BY is_primary DESC, id ASC", contactID)
	if err != nil {
		return nil, fmt.Errorf("query contact emails: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var emails []ContactEmail
	for rows.Next() {
		var e ContactEmail
		var primary int
		if err := rows.Scan(&e.Address, &primary); err != nil {
			return nil, fmt.Errorf("scan contact email: %w", err)
		}
		e.IsPrimary = primary != 0
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func (d *DB) contactPhones(ctx context.Context, contactID int64) ([]ContactPhone, error) {
	rows, err := d.Query(ctx,
		"SELECT number, is_primary FROM contact_phones WHERE contact_id = ? ORDER BY is_primary DESC, id ASC", contactID)
	if err != nil {
		return nil, fmt.Errorf("query contact phones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var phones []ContactPhone
	for rows.Next() {
		var p ContactPhone
		var primary int
		if err := rows.Scan(&p.Number, &primary); err != nil {
			return nil, fmt.Errorf("scan contact phone: %w", err)
		}
		p.IsPrimary = primary != 0
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

// CreateContact inserts a CRM contact and links it to the applicant.
// Used by tests and seeding; the executor creates contacts via tools.
func (d *DB) CreateContact(ctx context.Context, applicantID int64, fullName string, emails []ContactEmail, phones []ContactPhone) (int64, error) {
	res, err := d.Exec(ctx, "INSERT INTO crm_contacts (uuid, full_name) VALUES (?, ?)",
		uuid.NewString(), fullName)
	if err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	contactID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("contact id: %w", err)
	}

	for _, e := range emails {
		if _, err := d.Exec(ctx, "INSERT INTO contact_emails (contact_id, email, is_primary) VALUES (?, ?, ?)",
			contactID, e.Address, boolToInt(e.IsPrimary)); err != nil {
			return 0, fmt.Errorf("create contact email: %w", err)
		}
	}
	for _, p := range phones {
		if _, err := d.Exec(ctx, "INSERT INTO contact_phones (contact_id, number, is_primary) VALUES (?, ?, ?)",
			contactID, p.Number, boolToInt(p.IsPrimary)); err != nil {
			return 0, fmt.Errorf("create contact phone: %w", err)
		}
	}

	if _, err := d.Exec(ctx, "INSERT INTO applicant_contacts (applicant_id, contact_id) VALUES (?, ?)",
		applicantID, contactID); err != nil {
		return 0, fmt.Errorf("link contact: %w", err)
	}
	return contactID, nil
}
