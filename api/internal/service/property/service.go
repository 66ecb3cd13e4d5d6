package property

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	// maxRoomCount matches the INTEGER columns backing bedrooms and bathrooms.
	maxRoomCount = math.MaxInt32
)

var (
	// ErrInvalidProperty wraps every validation failure.
	ErrInvalidProperty = errors.New("invalid property")
	// ErrNotFound means the listing does not exist or is not owned by the caller.
	ErrNotFound = errors.New("property not found")
)

// CreateInput encapsulates listing attributes supplied by an agent.
type CreateInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       *float64        `json:"price"`
	Location    domain.Location `json:"location"`
	Bedrooms    *int            `json:"bedrooms"`
	Bathrooms   *int            `json:"bathrooms"`
	AreaSqFt    *float64        `json:"areaSqFt"`
	Images      []string        `json:"images"`
	Amenities   []string        `json:"amenities"`
	Status      string          `json:"status"`
}

// ListQuery is the public search request.
type ListQuery struct {
	City     string
	MinPrice *float64
	MaxPrice *float64
	Beds     *int
	Baths    *int
	Text     string
	Page     int
	Limit    int
}

// Page is one page of search results.
type Page struct {
	Data  []domain.Property `json:"data"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
}

// Service orchestrates listing management.
type Service struct {
	properties repository.PropertyRepository
	logger     *slog.Logger
	now        func() time.Time
}

// New returns a property service.
func New(properties repository.PropertyRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{properties: properties, logger: logger, now: time.Now}
}

// List searches available listings, newest first.
func (s Service) List(ctx context.Context, q ListQuery) (Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page-1 > math.MaxInt/limit {
		return Page{}, fmt.Errorf("%w: page out of range", ErrInvalidProperty)
	}
	filter := repository.PropertyFilter{
		City:     strings.TrimSpace(q.City),
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		MinBeds:  q.Beds,
		MinBaths: q.Baths,
		Query:    strings.TrimSpace(q.Text),
		Status:   domain.PropertyStatusAvailable,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	items, total, err := s.properties.ListProperties(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("list properties: %w", err)
	}
	if items == nil {
		items = []domain.Property{}
	}
	return Page{Data: items, Total: total, Page: page}, nil
}

// Get returns a listing by identifier.
func (s Service) Get(ctx context.Context, id string) (*domain.Property, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	p, err := s.properties.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return p, nil
}

// ListByAgent returns the agent's own listings.
func (s Service) ListByAgent(ctx context.Context, agentID string) ([]domain.Property, error) {
	items, err := s.properties.ListPropertiesByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("list agent properties: %w", err)
	}
	if items == nil {
		items = []domain.Property{}
	}
	return items, nil
}

// Create publishes a new listing owned by agentID.
func (s Service) Create(ctx context.Context, agentID string, in CreateInput) (*domain.Property, error) {
	if in.Price == nil {
		return nil, fmt.Errorf("%w: price is required", ErrInvalidProperty)
	}
	now := s.now().UTC()
	p := &domain.Property{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       *in.Price,
		Location:    trimLocation(in.Location),
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		AreaSqFt:    in.AreaSqFt,
		Images:      cleanList(in.Images),
		Amenities:   cleanList(in.Amenities),
		Status:      strings.ToLower(strings.TrimSpace(in.Status)),
		AgentID:     agentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Status == "" {
		p.Status = domain.PropertyStatusAvailable
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.properties.CreateProperty(ctx, p); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}
	s.logger.Info("property created", "property_id", p.ID, "agent_id", agentID)
	return p, nil
}

// Update applies patch to a listing owned by agentID.
func (s Service) Update(ctx context.Context, agentID, id string, patch domain.PropertyPatch) (*domain.Property, error) {
	p, err := s.Owned(ctx, agentID, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)
	p.Title = strings.TrimSpace(p.Title)
	p.Location = trimLocation(p.Location)
	p.Images = cleanList(p.Images)
	p.Amenities = cleanList(p.Amenities)
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	if err := validate(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.properties.UpdateProperty(ctx, p); err != nil {
		return nil, mapNotFound(err)
	}
	s.logger.Info("property updated", "property_id", p.ID, "agent_id", agentID)
	return p, nil
}

// Delete removes a listing owned by agentID.
func (s Service) Delete(ctx context.Context, agentID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	if err := s.properties.DeleteProperty(ctx, id, agentID); err != nil {
		return mapNotFound(err)
	}
	s.logger.Info("property deleted", "property_id", id, "agent_id", agentID)
	return nil
}

// Owned returns the listing when it exists and belongs to agentID.
func (s Service) Owned(ctx context.Context, agentID, id string) (*domain.Property, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AgentID != agentID {
		return nil, ErrNotFound
	}
	return p, nil
}

func validate(p *domain.Property) error {
	switch {
	case p.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidProperty)
	case math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price < 0:
		return fmt.Errorf("%w: price must be a non-negative number", ErrInvalidProperty)
	case p.Location.City == "":
		return fmt.Errorf("%w: location.city is required", ErrInvalidProperty)
	case p.Bedrooms != nil && (*p.Bedrooms < 0 || *p.Bedrooms > maxRoomCount):
		return fmt.Errorf("%w: bedrooms must be between 0 and %d", ErrInvalidProperty, maxRoomCount)
	case p.Bathrooms != nil && (*p.Bathrooms < 0 || *p.Bathrooms > maxRoomCount):
		return fmt.Errorf("%w: bathrooms must be between 0 and %d", ErrInvalidProperty, maxRoomCount)
	case p.AreaSqFt != nil && *p.AreaSqFt < 0:
		return fmt.Errorf("%w: areaSqFt must not be negative", ErrInvalidProperty)
	case p.Location.Lat != nil && (*p.Location.Lat < -90 || *p.Location.Lat > 90):
		return fmt.Errorf("%w: location.lat out of range", ErrInvalidProperty)
	case p.Location.Lng != nil && (*p.Location.Lng < -180 || *p.Location.Lng > 180):
		return fmt.Errorf("%w: location.lng out of range", ErrInvalidProperty)
	case !domain.ValidPropertyStatus(p.Status):
		return fmt.Errorf("%w: status must be available, pending or sold", ErrInvalidProperty)
	}
	return nil
}

func trimLocation(l domain.Location) domain.Location {
	l.Address = strings.TrimSpace(l.Address)
	l.City = strings.TrimSpace(l.City)
	l.State = strings.TrimSpace(l.State)
	l.Country = strings.TrimSpace(l.Country)
	return l
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
