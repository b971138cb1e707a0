package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kjstillabower/weather-desk/internal/models"
	"github.com/kjstillabower/weather-desk/internal/observability"
	"github.com/kjstillabower/weather-desk/internal/validation"
)

const contactColumns = `id, name, phone, email, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// AddContact validates and stores a contact, returning it with its new id.
func (s *Store) AddContact(ctx context.Context, name, phone, email string) (models.Contact, error) {
	name, phone, email, err := validation.ValidateContact(name, phone, email)
	if err != nil {
		recordContactOp("add", err)
		return models.Contact{}, err
	}
	c := models.Contact{Name: name, Phone: phone, Email: email, CreatedAt: s.now().UTC()}
	start := time.Now()
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO contacts (name, phone, email, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Name, c.Phone, c.Email, c.CreatedAt,
	).Scan(&c.ID)
	observe("add_contact", start)
	if err != nil {
		err = dbError("add contact", err)
		recordContactOp("add", err)
		return models.Contact{}, err
	}
	recordContactOp("add", nil)
	return c, nil
}

// ListContacts returns contacts ordered by name. A non-blank search keeps only contacts
// whose name, phone or email contains it, ignoring case.
//
// sqlite's LOWER folds ASCII only, so on sqlite3 the search is applied in Go where
// case folding covers all of Unicode. Postgres lowers Unicode itself.
func (s *Store) ListContacts(ctx context.Context, search string) ([]models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts`
	var args []any
	search = strings.ToLower(strings.TrimSpace(search))
	filterInGo := search != "" && s.driver == "sqlite3"
	if search != "" && !filterInGo {
		query += ` WHERE LOWER(name) LIKE $1 ESCAPE '\' OR LOWER(phone) LIKE $1 ESCAPE '\' OR LOWER(email) LIKE $1 ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
	}
	query += ` ORDER BY LOWER(name), id`

	start := time.Now()
	defer observe("list_contacts", start)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("list contacts", err)
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
			return nil, dbError("scan contact", err)
		}
		if filterInGo && !contactMatches(c, search) {
			continue
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list contacts", err)
	}
	return contacts, nil
}

// contactMatches reports whether any field of c contains the lowercased search.
func contactMatches(c models.Contact, search string) bool {
	for _, field := range []string{c.Name, c.Phone, c.Email} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// GetContact returns the contact with id or ErrContactNotFound.
func (s *Store) GetContact(ctx context.Context, id int64) (models.Contact, error) {
	var c models.Contact
	start := time.Now()
	err := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	observe("get_contact", start)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, fmt.Errorf("%w: %d", ErrContactNotFound, id)
	}
	if err != nil {
		return models.Contact{}, dbError("get contact", err)
	}
	return c, nil
}

// UpdateContact replaces the fields of contact id.
func (s *Store) UpdateContact(ctx context.Context, id int64, name, phone, email string) (models.Contact, error) {
	name, phone, email, err := validation.ValidateContact(name, phone, email)
	if err != nil {
		recordContactOp("update", err)
		return models.Contact{}, err
	}
	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET name = $1, phone = $2, email = $3 WHERE id = $4`,
		name, phone, email, id,
	)
	observe("update_contact", start)
	if err = affectedOne(res, err, "update contact", id); err != nil {
		recordContactOp("update", err)
		return models.Contact{}, err
	}
	recordContactOp("update", nil)
	return s.GetContact(ctx, id)
}

// DeleteContact removes contact id.
func (s *Store) DeleteContact(ctx context.Context, id int64) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	observe("delete_contact", start)
	err = affectedOne(res, err, "delete contact", id)
	recordContactOp("delete", err)
	return err
}

func affectedOne(res sql.Result, err error, operation string, id int64) error {
	if err != nil {
		return dbError(operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(operation, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrContactNotFound, id)
	}
	return nil
}

func recordContactOp(operation string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrContactNotFound):
		result = "not_found"
	case errors.Is(err, ErrDatabase):
		result = "error"
	default:
		result = "invalid"
	}
	observability.ContactOperationsTotal.WithLabelValues(operation, result).Inc()
}
