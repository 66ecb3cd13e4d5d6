package repository

import (
	"context"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
)

// UserRepository persists users. CreateUser returns ErrConflict when the email is taken.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// PropertyFilter narrows public listing queries. Zero values disable a filter.
type PropertyFilter struct {
	City     string
	MinPrice *float64
	MaxPrice *float64
	MinBeds  *int
	MinBaths *int
	Query    string
	Status   string
	Limit    int
	Offset   int
}

// PropertyRepository persists listings.
type PropertyRepository interface {
	CreateProperty(ctx context.Context, property *domain.Property) error
	GetPropertyByID(ctx context.Context, id string) (*domain.Property, error)
	ListProperties(ctx context.Context, filter PropertyFilter) ([]domain.Property, int, error)
	ListPropertiesByAgent(ctx context.Context, agentID string) ([]domain.Property, error)
	UpdateProperty(ctx context.Context, property *domain.Property) error
	DeleteProperty(ctx context.Context, id, agentID string) error
}

// InterestRepository persists client interest in listings.
type InterestRepository interface {
	UpsertInterest(ctx context.Context, interest *domain.Interest) error
	DeleteInterest(ctx context.Context, clientID, propertyID string) error
	ListInterestsByClient(ctx context.Context, clientID string) ([]domain.InterestWithProperty, error)
	ListInterestsByProperty(ctx context.Context, propertyID string) ([]domain.InterestWithClient, error)
}
