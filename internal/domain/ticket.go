package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusApprovalPending TicketStatus = "approval-pending"
	TicketStatusApproved        TicketStatus = "approved"
	TicketStatusRejected        TicketStatus = "rejected"
	TicketStatusInProgress      TicketStatus = "in-progress"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
)

// TicketStatuses lists every valid status value.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusApprovalPending,
	TicketStatusApproved,
	TicketStatusRejected,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether the status belongs to the closed set.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether the priority belongs to the closed set.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Comment is an append-only entry in a ticket's thread.
type Comment struct {
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	Internal   bool      `json:"internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// Attachment stores uploaded file metadata on a ticket.
type Attachment struct {
	FileName   string    `json:"file_name"`
	Path       string    `json:"path"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Ticket is the aggregate under workflow control.
type Ticket struct {
	ID             string
	Code           string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	CategoryID     *string
	DepartmentID   *string
	AssigneeID     *string
	CreatorID      string
	OrganizationID *string
	DueDate        *time.Time
	Solution       *string
	ApprovedBy     *string
	ApprovedAt     *time.Time
	Comments       []Comment
	Attachments    []Attachment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
