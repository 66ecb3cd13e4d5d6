package httpx

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/property"
)

func (r *Router) handleListProperties(w http.ResponseWriter, req *http.Request) {
	query, err := parseListQuery(req.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := r.properties.List(req.Context(), query)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (r *Router) handleGetProperty(w http.ResponseWriter, req *http.Request) {
	p, err := r.properties.Get(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

func (r *Router) handleMyProperties(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	items, err := r.properties.ListByAgent(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (r *Router) handleCreateProperty(w http.ResponseWriter, req *http.Request) {
	var payload property.CreateInput
	if !decodeJSON(w, req, &payload) {
		return
	}
	info, _ := authInfoFromContext(req.Context())
	p, err := r.properties.Create(req.Context(), info.UserID, payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": p})
}

func (r *Router) handleUpdateProperty(w http.ResponseWriter, req *http.Request) {
	var patch domain.PropertyPatch
	if !decodeJSON(w, req, &patch) {
		return
	}
	info, _ := authInfoFromContext(req.Context())
	p, err := r.properties.Update(req.Context(), info.UserID, req.PathValue("id"), patch)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgPropertyNotOwned)
			return
		}
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

func (r *Router) handleDeleteProperty(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	if err := r.properties.Delete(req.Context(), info.UserID, req.PathValue("id")); err != nil {
		if errors.Is(err, property.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgPropertyNotOwned)
			return
		}
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Property deleted"})
}

type queryError struct{ param string }

func (e queryError) Error() string { return "invalid query parameter " + e.param }

func parseListQuery(values url.Values) (property.ListQuery, error) {
	q := property.ListQuery{
		City: values.Get("city"),
		Text: values.Get("q"),
	}
	var err error
	if q.MinPrice, err = optionalFloat(values, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = optionalFloat(values, "maxPrice"); err != nil {
		return q, err
	}
	if q.Beds, err = optionalInt(values, "beds"); err != nil {
		return q, err
	}
	if q.Baths, err = optionalInt(values, "baths"); err != nil {
		return q, err
	}
	page, err := optionalInt(values, "page")
	if err != nil {
		return q, err
	}
	if page != nil {
		q.Page = *page
	}
	limit, err := optionalInt(values, "limit")
	if err != nil {
		return q, err
	}
	if limit != nil {
		q.Limit = *limit
	}
	return q, nil
}

func optionalFloat(values url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, queryError{param: key}
	}
	return &v, nil
}

func optionalInt(values url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, queryError{param: key}
	}
	return &v, nil
}
