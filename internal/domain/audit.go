package domain

import "time"

// AuditAction names the kind of write an audit entry records.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionRemove AuditAction = "remove"
)

// Versioned field names recorded in audit data.
const (
	FieldTitle             = "title"
	FieldDescription       = "description"
	FieldStatus            = "status"
	FieldPriority          = "priority"
	FieldResponsiblePerson = "responsiblePerson"
	FieldAuthor            = "author"
)

// AuditEntry is an immutable record of one write to a trackable item.
// Data is sparse: it holds only the fields changed by that write.
type AuditEntry struct {
	ID          string
	ObjectClass ItemKind
	ObjectID    string
	Version     int
	LoggedAt    time.Time
	Username    string
	Action      AuditAction
	Data        map[string]any
}

// RecordedStatus returns the status stored in the entry, if any. A status key holding a
// non-string value reports ("", true): the entry did record a status change, but the value
// cannot be parsed, and undo treats it as inconsistent data.
func (e *AuditEntry) RecordedStatus() (string, bool) {
	if e == nil || e.Data == nil {
		return "", false
	}
	raw, ok := e.Data[FieldStatus]
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case Status:
		return string(v), true
	}
	return "", true
}

// HasStatusChange reports whether the entry recorded a status value.
func (e *AuditEntry) HasStatusChange() bool {
	_, ok := e.RecordedStatus()
	return ok
}
