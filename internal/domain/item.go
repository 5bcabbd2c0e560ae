package domain

import (
	"fmt"
	"time"
)

// ItemKind discriminates the two trackable entity types and their history streams.
type ItemKind string

const (
	KindBug       ItemKind = "bug"
	KindBugReport ItemKind = "bug_report"
)

// ParseKind converts a raw value into an ItemKind.
func ParseKind(raw string) (ItemKind, error) {
	switch k := ItemKind(raw); k {
	case KindBug, KindBugReport:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
}

// TrackableItem is the capability set the workflow operates on.
type TrackableItem interface {
	Kind() ItemKind
	ItemID() string
	Status() Status
	IsActive() bool
	AuthorID() string
	ResponsiblePerson() string
	Base() *Trackable

	Close()
	Verify()
	BugReturn()
	Reopen()
	SendToVerify()
	SendToDiscuss()
	CantBeReproduced()
	RestoreStatus(status Status) error
}

// Trackable holds the fields shared by bugs and bug reports.
// Status and author are only reachable through methods so that neither can drift
// outside the workflow.
type Trackable struct {
	ID                  string
	TrackerID           string
	Title               string
	Description         string
	Priority            Priority
	ResponsiblePersonID string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	status   Status
	authorID string
}

// TrackableRecord is the flat persisted shape of a Trackable.
type TrackableRecord struct {
	ID                  string
	TrackerID           string
	Title               string
	Description         string
	Status              string
	Priority            string
	AuthorID            string
	ResponsiblePersonID string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func newTrackable(authorID, trackerID, responsibleID, title, description string, priority Priority) Trackable {
	if !priority.Valid() {
		priority = PriorityNormal
	}
	return Trackable{
		TrackerID:           trackerID,
		Title:               title,
		Description:         description,
		Priority:            priority,
		ResponsiblePersonID: responsibleID,
		status:              StatusNew,
		authorID:            authorID,
	}
}

// LoadTrackable rebuilds a Trackable from a stored record, rejecting unknown enum values.
func LoadTrackable(rec TrackableRecord) (Trackable, error) {
	status, err := ParseStatus(rec.Status)
	if err != nil {
		return Trackable{}, err
	}
	priority, err := ParsePriority(rec.Priority)
	if err != nil {
		return Trackable{}, err
	}
	return Trackable{
		ID:                  rec.ID,
		TrackerID:           rec.TrackerID,
		Title:               rec.Title,
		Description:         rec.Description,
		Priority:            priority,
		ResponsiblePersonID: rec.ResponsiblePersonID,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
		status:              status,
		authorID:            rec.AuthorID,
	}, nil
}

// Record flattens the Trackable for storage.
func (t *Trackable) Record() TrackableRecord {
	return TrackableRecord{
		ID:                  t.ID,
		TrackerID:           t.TrackerID,
		Title:               t.Title,
		Description:         t.Description,
		Status:              string(t.status),
		Priority:            string(t.Priority),
		AuthorID:            t.authorID,
		ResponsiblePersonID: t.ResponsiblePersonID,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// Base returns the shared fields of the item.
func (t *Trackable) Base() *Trackable { return t }
// ItemID returns the storage id.
func (t *Trackable) ItemID() string { return t.ID }
// Status returns the current workflow status.
func (t *Trackable) Status() Status { return t.status }
// AuthorID returns the id of the user who filed the item.
func (t *Trackable) AuthorID() string { return t.authorID }
// ResponsiblePerson returns the assignee id, empty when unassigned.
func (t *Trackable) ResponsiblePerson() string { return t.ResponsiblePersonID }

// IsActive is true until the item is verified or closed.
func (t *Trackable) IsActive() bool {
	return !t.status.Terminal()
}

// Close moves the item to closed.
func (t *Trackable) Close() { t.status = StatusClosed }
// Verify moves the item to verified.
func (t *Trackable) Verify() { t.status = StatusVerified }
// BugReturn moves the item to returned.
func (t *Trackable) BugReturn() { t.status = StatusReturned }
// Reopen moves the item back to new.
func (t *Trackable) Reopen() { t.status = StatusNew }
// SendToVerify moves the item to to_verify.
func (t *Trackable) SendToVerify() { t.status = StatusToVerify }
// SendToDiscuss moves the item to to_be_discussed.
func (t *Trackable) SendToDiscuss() { t.status = StatusToBeDiscussed }
// CantBeReproduced moves the item to cant_reproduce.
func (t *Trackable) CantBeReproduced() { t.status = StatusCantReproduce }

// RestoreStatus assigns a previously recorded status, bypassing transition rules.
func (t *Trackable) RestoreStatus(status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	t.status = status
	return nil
}

// ChangePriority sets a validated priority.
func (t *Trackable) ChangePriority(p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, p)
	}
	t.Priority = p
	return nil
}

// ChangePriorityToCritical sets priority to critical.
func (t *Trackable) ChangePriorityToCritical() { t.Priority = PriorityCritical }
// ChangePriorityToMajor sets priority to major.
func (t *Trackable) ChangePriorityToMajor() { t.Priority = PriorityMajor }
// ChangePriorityToNormal sets priority to normal.
func (t *Trackable) ChangePriorityToNormal() { t.Priority = PriorityNormal }
// ChangePriorityToMinor sets priority to minor.
func (t *Trackable) ChangePriorityToMinor() { t.Priority = PriorityMinor }

// ChangeResponsiblePerson reassigns the item.
func (t *Trackable) ChangeResponsiblePerson(userID string) {
	t.ResponsiblePersonID = userID
}

// ChangeTitle replaces the title.
func (t *Trackable) ChangeTitle(title string) { t.Title = title }
// ChangeDescription replaces the description.
func (t *Trackable) ChangeDescription(description string) { t.Description = description }

// Bug is a defect filed by QA against a tracker.
type Bug struct {
	Trackable
}

// NewBug builds a bug in the new status.
func NewBug(authorID, trackerID, responsibleID, title, description string, priority Priority) *Bug {
	return &Bug{Trackable: newTrackable(authorID, trackerID, responsibleID, title, description, priority)}
}

// Kind identifies the item as a bug.
func (b *Bug) Kind() ItemKind { return KindBug }

// BugReport is a bug with environment details and a comment thread.
type BugReport struct {
	Trackable
	Browsers    []string
	Resolutions []string
	Locales     []string
}

// NewBugReport builds a bug report in the new status.
func NewBugReport(authorID, trackerID, responsibleID, title, description string, priority Priority) *BugReport {
	return &BugReport{Trackable: newTrackable(authorID, trackerID, responsibleID, title, description, priority)}
}

// Kind identifies the item as a bug report.
func (r *BugReport) Kind() ItemKind { return KindBugReport }
