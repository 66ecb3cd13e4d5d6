package domain

import "time"

// Interest records that a client wants to hear about a property.
type Interest struct {
	ID         string    `json:"_id"`
	PropertyID string    `json:"propertyId"`
	ClientID   string    `json:"clientId"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ClientSummary is the contact card an agent sees for an interested client.
type ClientSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InterestWithProperty is a client's interest with the listing embedded.
type InterestWithProperty struct {
	ID        string    `json:"_id"`
	Property  Property  `json:"propertyId"`
	ClientID  string    `json:"clientId"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// InterestWithClient is an interest on an agent's listing with the client embedded.
type InterestWithClient struct {
	ID         string        `json:"_id"`
	PropertyID string        `json:"propertyId"`
	Client     ClientSummary `json:"clientId"`
	Message    string        `json:"message,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}
