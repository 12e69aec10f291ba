package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/utils"
)

// ErrEmailExists is returned by Register when the address is taken.
var ErrEmailExists = errors.New("email already exists")

// UserRepo manages accounts and resolves them to actors.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Registration carries the account fields plus the role specific profile
// fields.  Advocate fields are ignored for other roles; AssistantOf is the
// advocate profile an ASSISTANT account is linked to.
type Registration struct {
	Email                string
	Password             string
	FullName             string
	Phone                *string
	Role                 model.Role
	City                 string
	Specialization       string
	ExperienceYears      int
	BarCouncilID         string
	ConsultationFeeCents int64
	AssistantOf          uint64
}

// Register creates the user row and its profile in one transaction and
// returns the new user id.  Advocates start unverified.
func (r *UserRepo) Register(ctx context.Context, reg Registration, cost int) (uint64, error) {
	hash, err := utils.HashPassword(reg.Password, cost)
	if err != nil {
		return 0, err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, full_name, phone, password_hash, role) VALUES (?,?,?,?,?)",
		utils.NormalizeEmail(reg.Email), reg.FullName, reg.Phone, hash, string(reg.Role))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	userID := uint64(id)

	switch reg.Role {
	case model.RoleClient:
		_, err = tx.ExecContext(ctx, "INSERT INTO client_profiles (user_id, city) VALUES (?,?)", userID, reg.City)
	case model.RoleAdvocate:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO advocate_profiles
			 (user_id, specialization, experience_years, bar_council_id, consultation_fee_cents)
			 VALUES (?,?,?,?,?)`,
			userID, reg.Specialization, reg.ExperienceYears, reg.BarCouncilID, reg.ConsultationFeeCents)
	case model.RoleAssistant:
		_, err = tx.ExecContext(ctx, "INSERT INTO assistants (advocate_id, user_id) VALUES (?,?)", reg.AssistantOf, userID)
	}
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return userID, nil
}

const userColumns = "id,email,full_name,phone,password_hash,role,is_active,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u     model.User
		phone sql.NullString
		role  string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &phone, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.Role = model.Role(role)
	if phone.Valid {
		p := phone.String
		u.Phone = &p
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", utils.NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// ResolveActor loads the user and the profile links its role implies.
// Inactive users resolve to ErrNotFound.
func (r *UserRepo) ResolveActor(ctx context.Context, userID uint64) (model.Actor, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return model.Actor{}, err
	}
	if !u.IsActive {
		return model.Actor{}, ErrNotFound
	}
	actor := model.Actor{UserID: u.ID, Role: u.Role}
	var (
		q    string
		dest **uint64
	)
	switch u.Role {
	case model.RoleClient:
		q, dest = "SELECT id FROM client_profiles WHERE user_id=?", &actor.ClientID
	case model.RoleAdvocate:
		q, dest = "SELECT id FROM advocate_profiles WHERE user_id=?", &actor.AdvocateID
	case model.RoleAssistant:
		q, dest = "SELECT advocate_id FROM assistants WHERE user_id=? AND is_active=1", &actor.AssistantOf
	default:
		return actor, nil
	}
	var id uint64
	switch err := r.DB.QueryRowContext(ctx, q, u.ID).Scan(&id); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return model.Actor{}, err
	default:
		*dest = &id
	}
	return actor, nil
}

// ClientContact resolves a client profile id to the user behind it.
func (r *UserRepo) ClientContact(ctx context.Context, clientID uint64) (model.Contact, error) {
	return r.contact(ctx, `SELECT u.id, u.full_name, u.email, u.phone
		FROM client_profiles p JOIN users u ON u.id = p.user_id WHERE p.id = ?`, clientID)
}

// AdvocateContact resolves an advocate profile id to the user behind it.
func (r *UserRepo) AdvocateContact(ctx context.Context, advocateID uint64) (model.Contact, error) {
	return r.contact(ctx, `SELECT u.id, u.full_name, u.email, u.phone
		FROM advocate_profiles p JOIN users u ON u.id = p.user_id WHERE p.id = ?`, advocateID)
}

// UserContact loads the contact details of a user id.
func (r *UserRepo) UserContact(ctx context.Context, userID uint64) (model.Contact, error) {
	return r.contact(ctx, `SELECT id, full_name, email, phone FROM users WHERE id = ?`, userID)
}

func (r *UserRepo) contact(ctx context.Context, q string, id uint64) (model.Contact, error) {
	var (
		c     model.Contact
		phone sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, id).Scan(&c.UserID, &c.FullName, &c.Email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if phone.Valid {
		p := phone.String
		c.Phone = &p
	}
	return c, nil
}

// AssistantsOf lists the active assistants of an advocate.
func (r *UserRepo) AssistantsOf(ctx context.Context, advocateID uint64) ([]model.Assistant, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, advocate_id, user_id, is_active FROM assistants WHERE advocate_id=? AND is_active=1 ORDER BY id", advocateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Assistant{}
	for rows.Next() {
		var a model.Assistant
		if err := rows.Scan(&a.ID, &a.AdvocateID, &a.UserID, &a.IsActive); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
