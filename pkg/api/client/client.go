package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "http://localhost:5000"
	apiPrefix         = "/api/v1"
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

// Client provides typed access to the marketplace API. Session cookies live in
// a cookie jar, so one Client behaves like one browser session.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	autoRefresh bool
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. A jar is attached when h has none.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithoutAutoRefresh disables the single refresh-and-retry on 401.
func WithoutAutoRefresh() Option {
	return func(c *Client) {
		c.autoRefresh = false
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	parsed, err := url.Parse(strings.TrimRight(trimmed, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:     parsed,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		autoRefresh: true,
	}
	for _, opt := range opts {
		opt(cli)
	}
	if cli.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		cli.httpClient.Jar = jar
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is an API 401.
func IsUnauthorized(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Session is the pair of session cookie values, suitable for persisting between runs.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Session returns the cookie values currently held for the API origin.
func (c *Client) Session() Session {
	var s Session
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		switch cookie.Name {
		case accessCookieName:
			s.AccessToken = cookie.Value
		case refreshCookieName:
			s.RefreshToken = cookie.Value
		}
	}
	return s
}

// SetSession seeds the jar with previously saved cookie values.
func (c *Client) SetSession(s Session) {
	var cookies []*http.Cookie
	if s.AccessToken != "" {
		cookies = append(cookies, &http.Cookie{Name: accessCookieName, Value: s.AccessToken, Path: "/"})
	}
	if s.RefreshToken != "" {
		cookies = append(cookies, &http.Cookie{Name: refreshCookieName, Value: s.RefreshToken, Path: "/"})
	}
	if len(cookies) > 0 {
		c.httpClient.Jar.SetCookies(c.baseURL, cookies)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}
	err := c.send(ctx, method, path, payload, v)
	if err == nil || !c.autoRefresh || !IsUnauthorized(err) || strings.HasPrefix(path, "/auth/") {
		return err
	}
	if c.Session().RefreshToken == "" {
		return err
	}
	if refreshErr := c.send(ctx, http.MethodPost, "/auth/refresh", nil, nil); refreshErr != nil {
		return err
	}
	return c.send(ctx, method, path, payload, v)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, v any) error {
	endpoint := c.baseURL.String() + apiPrefix + path
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Message)
}

// User reflects API user payloads.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userEnvelope struct {
	User *User `json:"user"`
}

// Register creates an account and starts a session.
func (c *Client) Register(ctx context.Context, input RegisterInput) (User, error) {
	var resp userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/register", input, &resp); err != nil {
		return User{}, err
	}
	if resp.User == nil {
		return User{}, errors.New("register response missing user")
	}
	return *resp.User, nil
}

// Login exchanges credentials for session cookies.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return User{}, err
	}
	if resp.User == nil {
		return User{}, errors.New("login response missing user")
	}
	return *resp.User, nil
}

// Logout revokes the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Refresh rotates the session cookies.
func (c *Client) Refresh(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/refresh", nil, nil)
}

// Me returns the current user, or nil when the account no longer exists.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp userEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		if !c.autoRefresh || !IsUnauthorized(err) || c.Session().RefreshToken == "" {
			return nil, err
		}
		if refreshErr := c.Refresh(ctx); refreshErr != nil {
			return nil, err
		}
		if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
			return nil, err
		}
	}
	return resp.User, nil
}

// Location mirrors the listing location payload.
type Location struct {
	Address string   `json:"address,omitempty"`
	City    string   `json:"city"`
	State   string   `json:"state,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Property is a marketplace listing.
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

// PropertyInput is the payload for publishing a listing.
type PropertyInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Location    Location `json:"location"`
	Bedrooms    *int     `json:"bedrooms,omitempty"`
	Bathrooms   *int     `json:"bathrooms,omitempty"`
	AreaSqFt    *float64 `json:"areaSqFt,omitempty"`
	Images      []string `json:"images,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// PropertyQuery filters the public listing search.
type PropertyQuery struct {
	City     string
	MinPrice *float64
	MaxPrice *float64
	Beds     *int
	Baths    *int
	Text     string
	Page     int
	Limit    int
}

func (q PropertyQuery) encode() string {
	values := url.Values{}
	if q.City != "" {
		values.Set("city", q.City)
	}
	if q.MinPrice != nil {
		values.Set("minPrice", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		values.Set("maxPrice", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.Beds != nil {
		values.Set("beds", strconv.Itoa(*q.Beds))
	}
	if q.Baths != nil {
		values.Set("baths", strconv.Itoa(*q.Baths))
	}
	if q.Text != "" {
		values.Set("q", q.Text)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// PropertyPage is one page of search results.
type PropertyPage struct {
	Data  []Property `json:"data"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// ListProperties searches available listings.
func (c *Client) ListProperties(ctx context.Context, q PropertyQuery) (PropertyPage, error) {
	var page PropertyPage
	if err := c.do(ctx, http.MethodGet, "/properties"+q.encode(), nil, &page); err != nil {
		return PropertyPage{}, err
	}
	return page, nil
}

// GetProperty fetches a single listing.
func (c *Client) GetProperty(ctx context.Context, id string) (Property, error) {
	var resp dataEnvelope[Property]
	if err := c.do(ctx, http.MethodGet, "/properties/"+url.PathEscape(id), nil, &resp); err != nil {
		return Property{}, err
	}
	return resp.Data, nil
}

// MyProperties lists the calling agent's listings.
func (c *Client) MyProperties(ctx context.Context) ([]Property, error) {
	var resp dataEnvelope[[]Property]
	if err := c.do(ctx, http.MethodGet, "/properties/agent/my-properties", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateProperty publishes a listing.
func (c *Client) CreateProperty(ctx context.Context, input PropertyInput) (Property, error) {
	var resp dataEnvelope[Property]
	if err := c.do(ctx, http.MethodPost, "/properties/agent", input, &resp); err != nil {
		return Property{}, err
	}
	return resp.Data, nil
}

// UpdateProperty applies a partial update. Only keys present in patch change.
func (c *Client) UpdateProperty(ctx context.Context, id string, patch map[string]any) (Property, error) {
	var resp dataEnvelope[Property]
	if err := c.do(ctx, http.MethodPatch, "/properties/agent/"+url.PathEscape(id), patch, &resp); err != nil {
		return Property{}, err
	}
	return resp.Data, nil
}

// DeleteProperty removes one of the agent's listings.
func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/properties/agent/"+url.PathEscape(id), nil, nil)
}

// Interest is a client's recorded interest.
type Interest struct {
	ID         string    `json:"_id"`
	PropertyID string    `json:"propertyId"`
	ClientID   string    `json:"clientId"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// InterestWithProperty is an interest with its listing embedded.
type InterestWithProperty struct {
	ID        string    `json:"_id"`
	Property  Property  `json:"propertyId"`
	ClientID  string    `json:"clientId"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClientSummary is the contact card of an interested client.
type ClientSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InterestWithClient is an interest with its client embedded.
type InterestWithClient struct {
	ID         string        `json:"_id"`
	PropertyID string        `json:"propertyId"`
	Client     ClientSummary `json:"clientId"`
	Message    string        `json:"message,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// ExpressInterest records interest in a listing.
func (c *Client) ExpressInterest(ctx context.Context, propertyID, message string) (Interest, error) {
	body := map[string]string{"propertyId": propertyID, "message": message}
	var resp dataEnvelope[Interest]
	if err := c.do(ctx, http.MethodPost, "/interests", body, &resp); err != nil {
		return Interest{}, err
	}
	return resp.Data, nil
}

// MyInterests lists the calling client's interests.
func (c *Client) MyInterests(ctx context.Context) ([]InterestWithProperty, error) {
	var resp dataEnvelope[[]InterestWithProperty]
	if err := c.do(ctx, http.MethodGet, "/interests", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// RemoveInterest withdraws interest in a listing.
func (c *Client) RemoveInterest(ctx context.Context, propertyID string) error {
	return c.do(ctx, http.MethodDelete, "/interests/"+url.PathEscape(propertyID), nil, nil)
}

// InterestedClients lists clients interested in one of the agent's listings.
func (c *Client) InterestedClients(ctx context.Context, propertyID string) ([]InterestWithClient, error) {
	var resp dataEnvelope[[]InterestWithClient]
	path := fmt.Sprintf("/interests/property/%s/clients", url.PathEscape(propertyID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
