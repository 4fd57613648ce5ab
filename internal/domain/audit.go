package domain

import "time"

// Audit actions recorded for a client.
const (
	AuditLogin              = "login"
	AuditLogout             = "logout"
	AuditFaceEnrolled       = "face_enrolled"
	AuditFaceMatchSucceeded = "face_match_succeeded"
	AuditFaceMatchFailed    = "face_match_failed"
	AuditOTPSent            = "otp_sent"
	AuditOTPVerified        = "otp_verified"
	AuditOTPFailed          = "otp_failed"
	AuditPasswordsListed    = "passwords_listed"
	AuditPasswordAdded      = "password_added"
	AuditTokenExpired       = "token_expired"
)

// AuditEvent is one recorded user action.
// PK: client_id, SK: event_id (ULID, so events sort by time).
type AuditEvent struct {
	ClientID  string    `json:"client_id" dynamodbav:"client_id"`
	EventID   string    `json:"id" dynamodbav:"event_id"`
	Action    string    `json:"action" dynamodbav:"action"`
	Detail    string    `json:"detail,omitempty" dynamodbav:"detail,omitempty"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
