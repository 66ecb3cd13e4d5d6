package postgres

import (
	"strconv"
	"strings"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/repository"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// propertySearchVector must match the expression of the full-text index.
const propertySearchVector = `to_tsvector('simple', title || ' ' || description)`

// propertyQuery is a parameterised WHERE clause plus its arguments.
type propertyQuery struct {
	where string
	args  []any
}

func (q *propertyQuery) add(clause string, arg any) {
	q.args = append(q.args, arg)
	clause = strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(q.args)))
	if q.where == "" {
		q.where = " WHERE " + clause
		return
	}
	q.where += " AND " + clause
}

// placeholder appends arg and returns its positional marker.
func (q *propertyQuery) placeholder(arg any) string {
	q.args = append(q.args, arg)
	return "$" + strconv.Itoa(len(q.args))
}

// buildPropertyQuery turns a filter into a WHERE clause. Only values travel as arguments.
func buildPropertyQuery(filter repository.PropertyFilter) propertyQuery {
	var q propertyQuery
	if status := strings.TrimSpace(filter.Status); status != "" {
		q.add("status = ?", status)
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		q.add(`location_city ILIKE ? ESCAPE '\'`, "%"+escapeLike(city)+"%")
	}
	if filter.MinPrice != nil {
		q.add("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q.add("price <= ?", *filter.MaxPrice)
	}
	if filter.MinBeds != nil {
		q.add("bedrooms >= ?", *filter.MinBeds)
	}
	if filter.MinBaths != nil {
		q.add("bathrooms >= ?", *filter.MinBaths)
	}
	if text := strings.TrimSpace(filter.Query); text != "" {
		q.add(propertySearchVector+" @@ plainto_tsquery('simple', ?)", text)
	}
	return q
}

// pageBounds normalises limit/offset.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
