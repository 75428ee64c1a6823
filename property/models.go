package property

import "time"

type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
	StatusRented    Status = "rented"
	StatusPending   Status = "pending"
)

// ValidStatus reports whether status is one of the enumerated listing states.
func ValidStatus(status Status) bool {
	switch status {
	case StatusAvailable, StatusSold, StatusRented, StatusPending:
		return true
	default:
		return false
	}
}

type DealType string

const (
	DealSale DealType = "sale"
	DealRent DealType = "rent"
)

// ValidDealType reports whether dealType is a known listing type.
func ValidDealType(dealType DealType) bool {
	return dealType == DealSale || dealType == DealRent
}

// Property mirrors the properties table. AgentID is nil for unassigned
// listings; AgentUsername is populated from the join when listing.
type Property struct {
	ID            int64
	AgentID       *int64
	AgentUsername *string
	Title         string
	Description   string
	City          string
	Locality      string
	Price         float64
	PropertyType  DealType
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateParams contains write parameters for a new listing. The agent is
// addressed by username, matching the public API surface.
type CreateParams struct {
	AgentUsername string
	Title         string
	Description   string
	City          string
	Locality      string
	Price         float64
	PropertyType  DealType
	Status        Status
}

// UpdateParams carries mutable listing fields. Zero values leave the stored
// value untouched; a non-empty AgentUsername reassigns the listing.
type UpdateParams struct {
	AgentUsername string
	Title         string
	Description   string
	City          string
	Locality      string
	Price         *float64
	PropertyType  DealType
	Status        Status
}
