// Package domain defines the persistence models for service requests,
// operator audit notes, profiles, and queued notifications. These types are
// mapped with GORM and form the core data layer of the village service portal.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ServiceRequest is a citizen's request for an administrative document.
// Requests are submitted without authentication (UserID may be nil) and are
// mutated only by operators. Rows are never deleted.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - RequestNumber: human-facing identifier, REQ-YYYYMMDD-NNNN, unique.
//   - UserID: optional owning account; nil for anonymous submissions.
//   - ServiceType: one of the eight document kinds (see enums.go).
//   - FullName / NIK / PhoneNumber: submitter data. NIK is indexed but NOT
//     unique; one person may file multiple requests.
//   - Status: lifecycle state (pending, on_process, completed, cancelled).
//   - OperatorID: set on the first operator action, nil before that.
//   - OperatorNotes: latest free-text note only; history lives in OperatorNote.
//   - Documents: storage keys of uploaded attachments (JSON-encoded list).
//   - CompletedAt: advisory completion timestamp; not enforced to correlate
//     with Status == completed.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type ServiceRequest struct {
	ID            string        `json:"id"             gorm:"type:char(36);primaryKey"`
	RequestNumber string        `json:"request_number" gorm:"type:varchar(32);not null;uniqueIndex:ux_request_number"`
	UserID        *string       `json:"user_id"        gorm:"type:varchar(64)"`
	ServiceType   ServiceType   `json:"service_type"   gorm:"type:varchar(48);not null;index:idx_requests_type"`
	FullName      string        `json:"full_name"      gorm:"type:varchar(255);not null"`
	NIK           string        `json:"nik"            gorm:"type:varchar(32);not null;index:idx_requests_nik"`
	PhoneNumber   string        `json:"phone_number"   gorm:"type:varchar(32);not null"`
	Status        RequestStatus `json:"status"         gorm:"type:varchar(16);not null;default:'pending';index:idx_requests_status"`
	OperatorID    *string       `json:"operator_id"    gorm:"type:varchar(64)"`
	OperatorNotes *string       `json:"operator_notes" gorm:"type:text"`
	Documents     StringList    `json:"documents"      gorm:"type:text"`
	CompletedAt   *time.Time    `json:"completed_at"`
	CreatedAt     time.Time     `json:"created_at"     gorm:"index:idx_requests_created"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName returns the database table name for ServiceRequest.
func (ServiceRequest) TableName() string { return "service_requests" }

// OperatorNote is an immutable audit record of a status change or annotation
// on a service request. Notes are append-only: never updated, never deleted.
//
// OldStatus/NewStatus are nullable snapshots; both are set on status changes
// and equal to each other when only a note was added.
type OperatorNote struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	RequestID  string         `json:"request_id"  gorm:"type:char(36);not null;index:idx_notes_request,priority:1"`
	OperatorID string         `json:"operator_id" gorm:"type:varchar(64);not null"`
	Note       string         `json:"note"        gorm:"type:text;not null"`
	OldStatus  *RequestStatus `json:"old_status"  gorm:"type:varchar(16)"`
	NewStatus  *RequestStatus `json:"new_status"  gorm:"type:varchar(16)"`
	CreatedAt  time.Time      `json:"created_at"  gorm:"index:idx_notes_request,priority:2"`

	// Request is the owning service request. The FK exists for integrity;
	// requests are never deleted by the application (retention is logical).
	Request ServiceRequest `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OperatorNote.
func (OperatorNote) TableName() string { return "operator_notes" }

// Profile maps an authenticated principal to a role. It exists solely to
// gate dashboard operations; "operator" and "admin" are equivalent for
// authorization purposes.
type Profile struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_profile_user"`
	Role      Role      `json:"role"    gorm:"type:varchar(16);not null;default:'user'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Notification is a queued outbound WhatsApp message. Status updates enqueue
// a row here; a background dispatcher drains the queue with bounded retries
// so a gateway outage can never fail or roll back the owning update.
//
// Status values: "pending" (awaiting dispatch), "sent", "failed" (eligible
// for retry), "dead" (attempts exhausted).
type Notification struct {
	ID        string     `json:"id"         gorm:"type:char(36);primaryKey"`
	RequestID string     `json:"request_id" gorm:"type:char(36);not null;index"`
	Phone     string     `json:"phone"      gorm:"type:varchar(32);not null"`
	Message   string     `json:"message"    gorm:"type:text;not null"`
	Status    string     `json:"status"     gorm:"type:varchar(16);not null;default:'pending';index:idx_notifications_status"`
	Attempts  int        `json:"attempts"   gorm:"not null;default:0"`
	LastError *string    `json:"last_error" gorm:"type:text"`
	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// Notification queue states.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationDead    = "dead"
)

// StringList stores a list of strings as a JSON-encoded TEXT column. It is
// used for the Documents field so the column round-trips identically across
// drivers.
type StringList []string

// Value implements driver.Valuer. A nil list is stored as "[]".
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL scans to an empty list.
func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = StringList{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("domain: unsupported source type for StringList")
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}
