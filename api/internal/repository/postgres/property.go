package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/repository"
)

const propertyColumns = `id, title, description, price,
	location_address, location_city, location_state, location_country, location_lat, location_lng,
	bedrooms, bathrooms, area_sqft, images, amenities, status, agent_id, created_at, updated_at`

// CreateProperty inserts a listing.
func (r *Repository) CreateProperty(ctx context.Context, p *domain.Property) error {
	const query = `INSERT INTO properties (` + propertyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Price,
		p.Location.Address, p.Location.City, p.Location.State, p.Location.Country, p.Location.Lat, p.Location.Lng,
		p.Bedrooms, p.Bathrooms, p.AreaSqFt, nonNil(p.Images), nonNil(p.Amenities), p.Status, p.AgentID, p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err)
}

// GetPropertyByID fetches a single listing.
func (r *Repository) GetPropertyByID(ctx context.Context, id string) (*domain.Property, error) {
	const query = `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	p, err := scanProperty(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProperties returns one page of listings matching filter and the total match count.
func (r *Repository) ListProperties(ctx context.Context, filter repository.PropertyFilter) ([]domain.Property, int, error) {
	q := buildPropertyQuery(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties`+q.where, q.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM properties%s ORDER BY created_at DESC, id LIMIT %s OFFSET %s`,
		propertyColumns, q.where, q.placeholder(limit), q.placeholder(offset))
	rows, err := r.pool.Query(ctx, query, q.args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	properties, err := collectProperties(rows)
	if err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

// ListPropertiesByAgent returns every listing owned by agentID, newest first.
func (r *Repository) ListPropertiesByAgent(ctx context.Context, agentID string) ([]domain.Property, error) {
	const query = `SELECT ` + propertyColumns + ` FROM properties WHERE agent_id = $1 ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return collectProperties(rows)
}

// UpdateProperty rewrites a listing. The row must belong to p.AgentID.
func (r *Repository) UpdateProperty(ctx context.Context, p *domain.Property) error {
	const query = `UPDATE properties SET
		title = $3, description = $4, price = $5,
		location_address = $6, location_city = $7, location_state = $8, location_country = $9,
		location_lat = $10, location_lng = $11,
		bedrooms = $12, bathrooms = $13, area_sqft = $14, images = $15, amenities = $16,
		status = $17, updated_at = $18
		WHERE id = $1 AND agent_id = $2`
	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.AgentID, p.Title, p.Description, p.Price,
		p.Location.Address, p.Location.City, p.Location.State, p.Location.Country,
		p.Location.Lat, p.Location.Lng,
		p.Bedrooms, p.Bathrooms, p.AreaSqFt, nonNil(p.Images), nonNil(p.Amenities),
		p.Status, p.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteProperty removes a listing owned by agentID. Interests cascade.
func (r *Repository) DeleteProperty(ctx context.Context, id, agentID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1 AND agent_id = $2`, id, agentID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func collectProperties(rows pgx.Rows) ([]domain.Property, error) {
	properties := make([]domain.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return properties, nil
}

func scanProperty(row pgx.Row) (domain.Property, error) {
	var p domain.Property
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Price,
		&p.Location.Address, &p.Location.City, &p.Location.State, &p.Location.Country, &p.Location.Lat, &p.Location.Lng,
		&p.Bedrooms, &p.Bathrooms, &p.AreaSqFt, &p.Images, &p.Amenities, &p.Status, &p.AgentID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Property{}, mapError(err)
	}
	p.Images = nonNil(p.Images)
	p.Amenities = nonNil(p.Amenities)
	return p, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
