package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// AdvocateRepo provides access to the advocate_profiles table.
type AdvocateRepo struct {
	q querier
}

// NewAdvocateRepo returns an AdvocateRepo bound to db.
func NewAdvocateRepo(db *sql.DB) *AdvocateRepo { return &AdvocateRepo{q: db} }

const advocateColumns = `id, user_id, specialization, experience_years, bar_council_id,
	consultation_fee_cents, verified, created_at, updated_at`

func scanAdvocate(row *sql.Row) (*model.AdvocateProfile, error) {
	var a model.AdvocateProfile
	err := row.Scan(&a.ID, &a.UserID, &a.Specialization, &a.ExperienceYears, &a.BarCouncilID,
		&a.ConsultationFeeCents, &a.Verified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetAdvocate loads an advocate profile by id.
func (r *AdvocateRepo) GetAdvocate(ctx context.Context, id uint64) (*model.AdvocateProfile, error) {
	return scanAdvocate(r.q.QueryRowContext(ctx,
		`SELECT `+advocateColumns+` FROM advocate_profiles WHERE id = ?`, id))
}

// LockAdvocate loads an advocate profile and holds a row lock on it until
// the surrounding transaction ends.
func (r *AdvocateRepo) LockAdvocate(ctx context.Context, id uint64) (*model.AdvocateProfile, error) {
	return scanAdvocate(r.q.QueryRowContext(ctx,
		`SELECT `+advocateColumns+` FROM advocate_profiles WHERE id = ? FOR UPDATE`, id))
}

// SetAdvocateVerified flips the verified flag.
func (r *AdvocateRepo) SetAdvocateVerified(ctx context.Context, id uint64, verified bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE advocate_profiles SET verified = ? WHERE id = ?`, verified, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 when the value is unchanged, so confirm existence.
		if _, err := r.GetAdvocate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

const advocateSummarySelect = `SELECT p.id, u.full_name, p.specialization, p.experience_years,
	p.consultation_fee_cents, p.verified,
	COALESCE(AVG(rv.rating), 0), COUNT(rv.id)
	FROM advocate_profiles p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN reviews rv ON rv.advocate_id = p.id`

// ListAdvocates returns the directory ordered verified first, then by
// experience.
func (r *AdvocateRepo) ListAdvocates(ctx context.Context, verifiedOnly bool) ([]model.AdvocateSummary, error) {
	q := advocateSummarySelect + ` WHERE u.is_active = 1`
	if verifiedOnly {
		q += ` AND p.verified = 1`
	}
	q += ` GROUP BY p.id, u.full_name ORDER BY p.verified DESC, p.experience_years DESC, u.full_name`
	rows, err := r.q.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AdvocateSummary{}
	for rows.Next() {
		var s model.AdvocateSummary
		if err := rows.Scan(&s.ID, &s.FullName, &s.Specialization, &s.ExperienceYears,
			&s.ConsultationFeeCents, &s.Verified, &s.AverageRating, &s.ReviewCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetAdvocateSummary returns one directory entry.
func (r *AdvocateRepo) GetAdvocateSummary(ctx context.Context, id uint64) (*model.AdvocateSummary, error) {
	var s model.AdvocateSummary
	err := r.q.QueryRowContext(ctx, advocateSummarySelect+` WHERE p.id = ? GROUP BY p.id, u.full_name`, id).
		Scan(&s.ID, &s.FullName, &s.Specialization, &s.ExperienceYears,
			&s.ConsultationFeeCents, &s.Verified, &s.AverageRating, &s.ReviewCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
