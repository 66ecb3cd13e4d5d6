package postgres

import (
	"context"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/repository"
)

// UpsertInterest records interest, replacing the message when the client already expressed it.
// ID and CreatedAt are set from the stored row.
func (r *Repository) UpsertInterest(ctx context.Context, interest *domain.Interest) error {
	const query = `INSERT INTO interests (id, property_id, client_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (property_id, client_id) DO UPDATE SET message = EXCLUDED.message
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		interest.ID, interest.PropertyID, interest.ClientID, interest.Message, interest.CreatedAt,
	).Scan(&interest.ID, &interest.CreatedAt)
	return mapError(err)
}

// DeleteInterest removes the client's interest in propertyID.
func (r *Repository) DeleteInterest(ctx context.Context, clientID, propertyID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM interests WHERE client_id = $1 AND property_id = $2`, clientID, propertyID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListInterestsByClient returns the client's interests with each listing embedded.
func (r *Repository) ListInterestsByClient(ctx context.Context, clientID string) ([]domain.InterestWithProperty, error) {
	const query = `SELECT i.id, i.client_id, i.message, i.created_at,
		p.id, p.title, p.description, p.price,
		p.location_address, p.location_city, p.location_state, p.location_country, p.location_lat, p.location_lng,
		p.bedrooms, p.bathrooms, p.area_sqft, p.images, p.amenities, p.status, p.agent_id, p.created_at, p.updated_at
		FROM interests i
		JOIN properties p ON p.id = i.property_id
		WHERE i.client_id = $1
		ORDER BY i.created_at DESC, i.id`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	interests := make([]domain.InterestWithProperty, 0)
	for rows.Next() {
		var it domain.InterestWithProperty
		p := &it.Property
		if err := rows.Scan(
			&it.ID, &it.ClientID, &it.Message, &it.CreatedAt,
			&p.ID, &p.Title, &p.Description, &p.Price,
			&p.Location.Address, &p.Location.City, &p.Location.State, &p.Location.Country, &p.Location.Lat, &p.Location.Lng,
			&p.Bedrooms, &p.Bathrooms, &p.AreaSqFt, &p.Images, &p.Amenities, &p.Status, &p.AgentID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, mapError(err)
		}
		p.Images = nonNil(p.Images)
		p.Amenities = nonNil(p.Amenities)
		interests = append(interests, it)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return interests, nil
}

// ListInterestsByProperty returns interests on a listing with the client's contact details.
func (r *Repository) ListInterestsByProperty(ctx context.Context, propertyID string) ([]domain.InterestWithClient, error) {
	const query = `SELECT i.id, i.property_id, i.message, i.created_at, u.id, u.name, u.email
		FROM interests i
		JOIN users u ON u.id = i.client_id
		WHERE i.property_id = $1
		ORDER BY i.created_at DESC, i.id`
	rows, err := r.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	interests := make([]domain.InterestWithClient, 0)
	for rows.Next() {
		var it domain.InterestWithClient
		if err := rows.Scan(&it.ID, &it.PropertyID, &it.Message, &it.CreatedAt, &it.Client.ID, &it.Client.Name, &it.Client.Email); err != nil {
			return nil, mapError(err)
		}
		interests = append(interests, it)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return interests, nil
}
