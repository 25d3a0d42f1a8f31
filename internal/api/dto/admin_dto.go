package dto

import "time"

// OrganizationSettingsPayload mirrors tenant toggles on the wire.
type OrganizationSettingsPayload struct {
	ManualTicketID        bool `json:"manualTicketId"`
	AllowSelfRegistration bool `json:"allowSelfRegistration"`
}

// CreateOrganizationRequest payload.
type CreateOrganizationRequest struct {
	Name     string                      `json:"name"`
	Settings OrganizationSettingsPayload `json:"settings"`
}

// UpdateOrganizationRequest payload.
type UpdateOrganizationRequest struct {
	Name     string                       `json:"name"`
	IsActive *bool                        `json:"isActive"`
	Settings *OrganizationSettingsPayload `json:"settings"`
}

// OrganizationResponse view.
type OrganizationResponse struct {
	ID        string                      `json:"id"`
	Name      string                      `json:"name"`
	IsActive  bool                        `json:"isActive"`
	Settings  OrganizationSettingsPayload `json:"settings"`
	CreatedAt time.Time                   `json:"createdAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// CreateDirectoryEntryRequest covers departments and categories.
type CreateDirectoryEntryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateDirectoryEntryRequest payload.
type UpdateDirectoryEntryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

// DirectoryEntryResponse view for departments and categories.
type DirectoryEntryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
