package model

import "time"

// CaseStatus is the lifecycle state of a legal case.
type CaseStatus string

const (
	CaseOpen       CaseStatus = "OPEN"
	CaseInProgress CaseStatus = "IN_PROGRESS"
	CaseClosed     CaseStatus = "CLOSED"
)

// Case is a legal matter opened from exactly one approved appointment.  It
// mirrors a row in the `cases` table; appointment_id is unique there.
type Case struct {
	ID            uint64     `json:"id"`
	AppointmentID uint64     `json:"appointment_id"`
	ClientID      uint64     `json:"client_id"`
	AdvocateID    uint64     `json:"advocate_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        CaseStatus `json:"status"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CaseHearing is a scheduled court appearance owned by a case.
type CaseHearing struct {
	ID          uint64    `json:"id"`
	CaseID      uint64    `json:"case_id"`
	HearingDate time.Time `json:"hearing_date"`
	HearingTime TimeOfDay `json:"hearing_time"`
	CourtName   string    `json:"court_name"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// CaseDocument is an uploaded file owned by a case.  The bytes live in the
// blob store under StorageKey; the row keeps who uploaded it.
type CaseDocument struct {
	ID           uint64    `json:"id"`
	CaseID       uint64    `json:"case_id"`
	UploadedBy   uint64    `json:"uploaded_by"` // users.id
	UploaderRole Role      `json:"uploader_role"`
	StorageKey   string    `json:"-"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// CaseFilter narrows case listings.
type CaseFilter struct {
	ClientID   uint64
	AdvocateID uint64
}
