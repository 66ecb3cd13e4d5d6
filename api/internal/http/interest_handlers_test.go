package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
)

func TestExpressInterestFlow(t *testing.T) {
	env := setupRouter(t)
	_, agent := env.register(t, "Alice", "alice@x.io", "agent")
	clientID, client := env.register(t, "Carl", "carl@x.io", "client")
	listing := env.createProperty(t, agent, listingBody("Loft"))

	rr := env.do(t, http.MethodPost, "/api/v1/interests", map[string]string{"propertyId": listing.ID, "message": "hi"}, client...)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	var first struct {
		Data domain.Interest `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// repeating the request updates the same interest
	rr = env.do(t, http.MethodPost, "/api/v1/interests", map[string]string{"propertyId": listing.ID, "message": "still keen"}, client...)
	var second struct {
		Data domain.Interest `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Data.ID != first.Data.ID || second.Data.Message != "still keen" {
		t.Fatalf("expected upsert, got %+v then %+v", first.Data, second.Data)
	}

	rr = env.do(t, http.MethodGet, "/api/v1/interests", nil, client...)
	var mine struct {
		Data []domain.InterestWithProperty `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &mine); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mine.Data) != 1 || mine.Data[0].Property.Title != "Loft" {
		t.Fatalf("unexpected interests %+v", mine.Data)
	}

	rr = env.do(t, http.MethodGet, "/api/v1/interests/property/"+listing.ID+"/clients", nil, agent...)
	var clients struct {
		Data []domain.InterestWithClient `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &clients); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(clients.Data) != 1 || clients.Data[0].Client.ID != clientID || clients.Data[0].Client.Email != "carl@x.io" {
		t.Fatalf("unexpected clients %+v", clients.Data)
	}
	if strings.Contains(strings.ToLower(rr.Body.String()), "password") {
		t.Fatalf("client summary leaks password material")
	}

	rr = env.do(t, http.MethodDelete, "/api/v1/interests/"+listing.ID, nil, client...)
	if rr.Code != http.StatusOK || parseMessage(t, rr.Body.String()) != "Interest removed successfully" {
		t.Fatalf("expected remove 200, got %d %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodDelete, "/api/v1/interests/"+listing.ID, nil, client...)
	if rr.Code != http.StatusNotFound || parseMessage(t, rr.Body.String()) != msgInterestNotFound {
		t.Fatalf("expected 404 on second remove, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestExpressInterestErrors(t *testing.T) {
	env := setupRouter(t)
	_, agent := env.register(t, "Alice", "alice@x.io", "agent")
	_, client := env.register(t, "Carl", "carl@x.io", "client")

	rr := env.do(t, http.MethodPost, "/api/v1/interests", map[string]string{"propertyId": "missing"}, client...)
	if rr.Code != http.StatusNotFound || parseMessage(t, rr.Body.String()) != msgPropertyNotFound {
		t.Fatalf("expected 404, got %d %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodPost, "/api/v1/interests", map[string]string{}, client...)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/api/v1/interests", map[string]string{"propertyId": "x"}, agent...)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected agents to be refused, got %d", rr.Code)
	}
}

func TestInterestedClientsRequiresOwnership(t *testing.T) {
	env := setupRouter(t)
	_, owner := env.register(t, "Alice", "alice@x.io", "agent")
	_, other := env.register(t, "Bob", "bob@x.io", "agent")
	listing := env.createProperty(t, owner, listingBody("Loft"))

	rr := env.do(t, http.MethodGet, "/api/v1/interests/property/"+listing.ID+"/clients", nil, other...)
	if rr.Code != http.StatusForbidden || parseMessage(t, rr.Body.String()) != msgNotAuthorized {
		t.Fatalf("expected 403, got %d %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodGet, "/api/v1/interests/property/missing/clients", nil, owner...)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown listing, got %d", rr.Code)
	}
}

func TestFeedSSEDeliversInterestEvents(t *testing.T) {
	env := setupRouter(t)
	agentID, agent := env.register(t, "Alice", "alice@x.io", "agent")
	clientID, client := env.register(t, "Carl", "carl@x.io", "client")
	listing := env.createProperty(t, agent, listingBody("Loft"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/interests/feed/sse", nil).WithContext(ctx)
	for _, c := range agent {
		req.AddCookie(c)
	}
	stream := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		env.router.ServeHTTP(stream, req)
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return env.hub.Subscribers(agentID) == 1 })
	if stream.header.Get("Content-Type") != "text/event-stream" {
		t.Fatalf("unexpected content type %q", stream.header.Get("Content-Type"))
	}

	rr := env.do(t, http.MethodPost, "/api/v1/interests", map[string]string{"propertyId": listing.ID, "message": "hi"}, client...)
	if rr.Code != http.StatusCreated {
		t.Fatalf("express interest: %d", rr.Code)
	}
	waitFor(t, time.Second, func() bool { return strings.Contains(stream.body(), "event: interest") })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
	if env.hub.Subscribers(agentID) != 0 {
		t.Fatalf("expected subscriber to be removed")
	}

	payloads, err := extractSSEPayloads(stream.body())
	if err != nil {
		t.Fatalf("parse stream: %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("expected one event, got %d (%s)", len(payloads), stream.body())
	}
	event := payloads[0]
	if event["type"] != "interest.created" || event["propertyId"] != listing.ID || event["clientId"] != clientID || event["propertyTitle"] != "Loft" {
		t.Fatalf("unexpected event %+v", event)
	}
	if stream.flushCount() < 2 {
		t.Fatalf("expected heartbeat and event flushes, got %d", stream.flushCount())
	}
}

func TestFeedRequiresAgent(t *testing.T) {
	env := setupRouter(t)
	_, client := env.register(t, "Carl", "carl@x.io", "client")

	rr := env.do(t, http.MethodGet, "/api/v1/interests/feed/sse", nil, client...)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/api/v1/interests/feed", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestFeedWebsocketDeliversInterestEvents(t *testing.T) {
	env := setupRouter(t)
	agentID, agent := env.register(t, "Alice", "alice@x.io", "agent")
	_, client := env.register(t, "Carl", "carl@x.io", "client")
	listing := env.createProperty(t, agent, listingBody("Loft"))

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	header := http.Header{}
	for _, c := range agent {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/interests/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	waitFor(t, time.Second, func() bool { return env.hub.Subscribers(agentID) == 1 })

	rr := env.do(t, http.MethodPost, "/api/v1/interests", map[string]string{"propertyId": listing.ID}, client...)
	if rr.Code != http.StatusCreated {
		t.Fatalf("express interest: %d", rr.Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event map[string]any
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event["type"] != "interest.created" || event["propertyId"] != listing.ID {
		t.Fatalf("unexpected event %+v", event)
	}

	_ = conn.Close()
	waitFor(t, 2*time.Second, func() bool { return env.hub.Subscribers(agentID) == 0 })
}
