package domain

import "time"

// Listing statuses.
const (
	PropertyStatusAvailable = "available"
	PropertyStatusSold      = "sold"
	PropertyStatusPending   = "pending"
)

// ValidPropertyStatus reports whether status is a known listing status.
func ValidPropertyStatus(status string) bool {
	switch status {
	case PropertyStatusAvailable, PropertyStatusSold, PropertyStatusPending:
		return true
	}
	return false
}

// Location describes where a property sits.
type Location struct {
	Address string   `json:"address,omitempty"`
	City    string   `json:"city"`
	State   string   `json:"state,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Property is a listing published by an agent.
type Property struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Location    Location  `json:"location"`
	Bedrooms    *int      `json:"bedrooms,omitempty"`
	Bathrooms   *int      `json:"bathrooms,omitempty"`
	AreaSqFt    *float64  `json:"areaSqFt,omitempty"`
	Images      []string  `json:"images"`
	Amenities   []string  `json:"amenities"`
	Status      string    `json:"status"`
	AgentID     string    `json:"agentId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PropertyPatch carries a partial update; nil fields are left untouched.
type PropertyPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Location    *Location `json:"location"`
	Bedrooms    *int      `json:"bedrooms"`
	Bathrooms   *int      `json:"bathrooms"`
	AreaSqFt    *float64  `json:"areaSqFt"`
	Images      *[]string `json:"images"`
	Amenities   *[]string `json:"amenities"`
	Status      *string   `json:"status"`
}

// Apply copies the set fields of p onto prop.
func (p PropertyPatch) Apply(prop *Property) {
	if p.Title != nil {
		prop.Title = *p.Title
	}
	if p.Description != nil {
		prop.Description = *p.Description
	}
	if p.Price != nil {
		prop.Price = *p.Price
	}
	if p.Location != nil {
		prop.Location = *p.Location
	}
	if p.Bedrooms != nil {
		prop.Bedrooms = p.Bedrooms
	}
	if p.Bathrooms != nil {
		prop.Bathrooms = p.Bathrooms
	}
	if p.AreaSqFt != nil {
		prop.AreaSqFt = p.AreaSqFt
	}
	if p.Images != nil {
		prop.Images = *p.Images
	}
	if p.Amenities != nil {
		prop.Amenities = *p.Amenities
	}
	if p.Status != nil {
		prop.Status = *p.Status
	}
}
