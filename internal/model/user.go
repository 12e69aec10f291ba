package model

import "time"

// User represents an account record as stored in the `users` table.
// Profiles hang off users one-to-one depending on the role.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	FullName     – display name used in notifications.
//	Phone        – optional E.164 phone number for SMS.
//	PasswordHash – bcrypt hashed password.
//	Role         – CLIENT, ADVOCATE, ADMIN or ASSISTANT.
//	IsActive     – whether the account may sign in.
type User struct {
	ID           uint64
	Email        string
	FullName     string
	Phone        *string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdvocateProfile models the `advocate_profiles` table.  Only verified
// advocates accept new bookings.
type AdvocateProfile struct {
	ID                   uint64
	UserID               uint64
	Specialization       string
	ExperienceYears      int
	BarCouncilID         string
	ConsultationFeeCents int64
	Verified             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AdvocateSummary is the public directory view of an advocate.
type AdvocateSummary struct {
	ID                   uint64  `json:"id"`
	FullName             string  `json:"full_name"`
	Specialization       string  `json:"specialization"`
	ExperienceYears      int     `json:"experience_years"`
	ConsultationFeeCents int64   `json:"consultation_fee_cents"`
	Verified             bool    `json:"verified"`
	AverageRating        float64 `json:"average_rating"`
	ReviewCount          int     `json:"review_count"`
}

// ClientProfile models the `client_profiles` table.
type ClientProfile struct {
	ID        uint64
	UserID    uint64
	City      string
	CreatedAt time.Time
}

// Assistant links an ASSISTANT user to the advocate they work for.
type Assistant struct {
	ID         uint64
	AdvocateID uint64
	UserID     uint64
	IsActive   bool
}

// Contact is what the notification consumer needs to reach a user.
type Contact struct {
	UserID   uint64
	FullName string
	Email    string
	Phone    *string
}
