package models

import "time"

// Audit action kinds.
const (
	AuditActionRegister     = "REGISTER"
	AuditActionLogin        = "LOGIN"
	AuditActionCreate       = "CREATE"
	AuditActionRead         = "READ"
	AuditActionUpdate       = "UPDATE"
	AuditActionDelete       = "DELETE"
	AuditActionShare        = "SHARE"
	AuditActionSharedAccess = "SHARED_ACCESS"
	AuditActionDeactivate   = "DEACTIVATE"
)

// Audit resource kinds.
const (
	AuditResourceUser      = "USER"
	AuditResourceSnippet   = "SNIPPET"
	AuditResourceShareLink = "SHARE_LINK"
)

// AuditEntry is an append-only record. A nil ActorID means anonymous.
type AuditEntry struct {
	ID           int64     `json:"id"`
	ActorID      *string   `json:"actor_id"`
	Action       string    `json:"action"`
	ResourceKind string    `json:"resource_kind"`
	ResourceID   *string   `json:"resource_id"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}
