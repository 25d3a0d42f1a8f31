package domain

import "time"

// OrganizationSettings holds per-tenant behavior toggles.
type OrganizationSettings struct {
	ManualTicketID        bool `json:"manual_ticket_id"`
	AllowSelfRegistration bool `json:"allow_self_registration"`
}

// Organization is a tenant.
type Organization struct {
	ID        string
	Name      string
	IsActive  bool
	Settings  OrganizationSettings
	CreatedAt time.Time
	UpdatedAt time.Time
}
