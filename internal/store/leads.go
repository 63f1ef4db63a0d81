package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/homesignal/tracker/internal/models"
)

const leadColumns = `
	id,
	COALESCE(first_name, ''), COALESCE(last_name, ''),
	COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(property_address, ''),
	created_at`

func scanLead(row pgx.Row) (*models.Lead, error) {
	var l models.Lead
	err := row.Scan(
		&l.ID,
		&l.FirstName, &l.LastName,
		&l.Email, &l.Phone,
		&l.PropertyAddress,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindLeadByEmail matches the stored canonical (lower-cased) email.
func (p *PostgresStore) FindLeadByEmail(ctx context.Context, email string) (*models.Lead, error) {
	l, err := scanLead(p.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// FindLeadByPhone matches the stored canonical (digits-only) phone.
func (p *PostgresStore) FindLeadByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	l, err := scanLead(p.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE phone = $1`, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// GetLeadByID returns a lead by primary key, or nil, nil when gone.
func (p *PostgresStore) GetLeadByID(ctx context.Context, id int64) (*models.Lead, error) {
	l, err := scanLead(p.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// FindLeadsByAddressOrName runs the weakest match rule: case-insensitive
// address OR full-name equality. The stable ordering makes an ambiguous
// match resolve identically on every run.
func (p *PostgresStore) FindLeadsByAddressOrName(ctx context.Context, address, firstName, lastName string) ([]*models.Lead, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE (NULLIF($1,'') IS NOT NULL AND lower(property_address) = lower($1))
		   OR (NULLIF($2,'') IS NOT NULL AND NULLIF($3,'') IS NOT NULL
		       AND lower(first_name) = lower($2) AND lower(last_name) = lower($3))
		ORDER BY created_at, id
	`, address, firstName, lastName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// InsertLead creates the lead row. A conflict on either unique key (email,
// phone) yields created=false so the resolver retries as a find.
func (p *PostgresStore) InsertLead(ctx context.Context, l *models.Lead) (bool, error) {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO leads (first_name, last_name, email, phone, property_address)
		VALUES (NULLIF($1,''), NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NULLIF($5,''))
		ON CONFLICT DO NOTHING
		RETURNING id, created_at
	`, l.FirstName, l.LastName, l.Email, l.Phone, l.PropertyAddress,
	).Scan(&l.ID, &l.CreatedAt)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// SaveLead persists merged fields. A unique violation (filling an email or
// phone already owned by another lead) is surfaced as ErrDuplicateKey so
// the resolver can drop the fill instead of failing the event.
func (p *PostgresStore) SaveLead(ctx context.Context, l *models.Lead) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE leads SET
			first_name       = NULLIF($2,''),
			last_name        = NULLIF($3,''),
			email            = NULLIF($4,''),
			phone            = NULLIF($5,''),
			property_address = NULLIF($6,'')
		WHERE id = $1
	`, l.ID, l.FirstName, l.LastName, l.Email, l.Phone, l.PropertyAddress)
	return wrapDuplicate(err)
}

// SetLeadAddress stores the canonicalized property address.
func (p *PostgresStore) SetLeadAddress(ctx context.Context, leadID int64, address string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE leads SET property_address = NULLIF($2,'') WHERE id = $1`, leadID, address)
	return err
}
