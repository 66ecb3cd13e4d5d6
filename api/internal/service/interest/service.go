package interest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/repository"
)

const maxMessageLength = 2000

// Event types pushed to an agent's live feed.
const (
	EventInterestCreated = "interest.created"
	EventInterestRemoved = "interest.removed"
)

var (
	// ErrPropertyNotFound means the referenced listing does not exist.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrInterestNotFound means the client never expressed interest in the listing.
	ErrInterestNotFound = errors.New("interest not found")
	// ErrNotOwner means the agent asked about a listing they do not own.
	ErrNotOwner = errors.New("not authorized")
	// ErrInvalidInterest wraps validation failures.
	ErrInvalidInterest = errors.New("invalid interest")
)

// Publisher delivers feed events to subscribers of a topic.
type Publisher interface {
	Broadcast(topic string, payload []byte) bool
}

// Event is the payload streamed to agents.
type Event struct {
	Type       string    `json:"type"`
	InterestID string    `json:"interestId,omitempty"`
	PropertyID string    `json:"propertyId"`
	Title      string    `json:"propertyTitle"`
	ClientID   string    `json:"clientId"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

// Service manages client interest and the agent feed.
type Service struct {
	interests  repository.InterestRepository
	properties repository.PropertyRepository
	feed       Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs an interest service. feed may be nil.
func New(interests repository.InterestRepository, properties repository.PropertyRepository, feed Publisher, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{interests: interests, properties: properties, feed: feed, logger: logger, now: time.Now}
}

// Express records (or updates) the client's interest in propertyID and notifies the owning agent.
func (s Service) Express(ctx context.Context, clientID, propertyID, message string) (*domain.Interest, error) {
	propertyID = strings.TrimSpace(propertyID)
	message = strings.TrimSpace(message)
	if propertyID == "" {
		return nil, fmt.Errorf("%w: propertyId is required", ErrInvalidInterest)
	}
	if len(message) > maxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInterest, maxMessageLength)
	}
	property, err := s.properties.GetPropertyByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("lookup property: %w", err)
	}

	interest := &domain.Interest{
		ID:         uuid.NewString(),
		PropertyID: property.ID,
		ClientID:   clientID,
		Message:    message,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.interests.UpsertInterest(ctx, interest); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// listing deleted between lookup and insert
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("upsert interest: %w", err)
	}
	s.logger.Info("interest recorded", "interest_id", interest.ID, "property_id", property.ID, "client_id", clientID)
	s.publish(property.AgentID, Event{
		Type:       EventInterestCreated,
		InterestID: interest.ID,
		PropertyID: property.ID,
		Title:      property.Title,
		ClientID:   clientID,
		Message:    interest.Message,
		At:         interest.CreatedAt,
	})
	return interest, nil
}

// ListMine returns the client's interests with listings embedded.
func (s Service) ListMine(ctx context.Context, clientID string) ([]domain.InterestWithProperty, error) {
	items, err := s.interests.ListInterestsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	if items == nil {
		items = []domain.InterestWithProperty{}
	}
	return items, nil
}

// Remove withdraws the client's interest in propertyID.
func (s Service) Remove(ctx context.Context, clientID, propertyID string) error {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return ErrInterestNotFound
	}
	if err := s.interests.DeleteInterest(ctx, clientID, propertyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInterestNotFound
		}
		return fmt.Errorf("delete interest: %w", err)
	}
	s.logger.Info("interest removed", "property_id", propertyID, "client_id", clientID)
	if property, err := s.properties.GetPropertyByID(ctx, propertyID); err == nil {
		s.publish(property.AgentID, Event{
			Type:       EventInterestRemoved,
			PropertyID: property.ID,
			Title:      property.Title,
			ClientID:   clientID,
			At:         s.now().UTC(),
		})
	}
	return nil
}

// InterestedClients lists interest on a listing owned by agentID.
func (s Service) InterestedClients(ctx context.Context, agentID, propertyID string) ([]domain.InterestWithClient, error) {
	property, err := s.properties.GetPropertyByID(ctx, strings.TrimSpace(propertyID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotOwner
		}
		return nil, fmt.Errorf("lookup property: %w", err)
	}
	if property.AgentID != agentID {
		return nil, ErrNotOwner
	}
	items, err := s.interests.ListInterestsByProperty(ctx, property.ID)
	if err != nil {
		return nil, fmt.Errorf("list interested clients: %w", err)
	}
	if items == nil {
		items = []domain.InterestWithClient{}
	}
	return items, nil
}

func (s Service) publish(agentID string, event Event) {
	if s.feed == nil || agentID == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal feed event", "error", err)
		return
	}
	if !s.feed.Broadcast(agentID, payload) {
		s.logger.Warn("feed event dropped", "agent_id", agentID, "type", event.Type)
	}
}
