package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/relaydesk-io/relaydesk/internal/ticket"
)

type fakeService struct {
	tickets    []*ticket.Ticket
	lastFilter ticket.Filter
	submitted  []submitTicketRequest
	getErr     error
}

func (f *fakeService) ListTickets(filter ticket.Filter) ([]*ticket.Ticket, error) {
	f.lastFilter = filter
	var out []*ticket.Ticket
	for _, t := range f.tickets {
		if filter.Answered != nil && t.Answered != *filter.Answered {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeService) GetTicket(id int64) (*ticket.Ticket, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, t := range f.tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, ticket.ErrNotFound
}

func (f *fakeService) CountTickets(filter ticket.Filter) (int, error) {
	ts, _ := f.ListTickets(filter)
	return len(ts), nil
}

func (f *fakeService) Submit(_ context.Context, channel, userID, userName, chatID, question string) (int64, error) {
	f.submitted = append(f.submitted, submitTicketRequest{
		Channel: channel, UserID: userID, UserName: userName, ChatID: chatID, Question: question,
	})
	return int64(len(f.submitted)), nil
}

func newTestServer(t *testing.T, svc RelayService, key string) *httptest.Server {
	t.Helper()
	s := NewServer(svc, Config{Host: "127.0.0.1", Port: 0, Key: key},
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url, key string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, "")

	resp := get(t, srv.URL+"/api/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, "secret")

	if resp := get(t, srv.URL+"/api/tickets", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", resp.StatusCode)
	}
	if resp := get(t, srv.URL+"/api/tickets", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", resp.StatusCode)
	}
	if resp := get(t, srv.URL+"/api/tickets", "secret"); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", resp.StatusCode)
	}
	// Health stays open
	if resp := get(t, srv.URL+"/api/health", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("expected health without auth, got %d", resp.StatusCode)
	}
}

func TestListTickets_StatusFilter(t *testing.T) {
	svc := &fakeService{tickets: []*ticket.Ticket{
		{ID: 1, Question: "open one"},
		{ID: 2, Question: "done one", Answered: true},
	}}
	srv := newTestServer(t, svc, "")

	resp := get(t, srv.URL+"/api/tickets?status=open", "")
	var tickets []*ticket.Ticket
	json.NewDecoder(resp.Body).Decode(&tickets)
	if len(tickets) != 1 || tickets[0].ID != 1 {
		t.Fatalf("expected only open ticket, got %v", tickets)
	}

	if resp := get(t, srv.URL+"/api/tickets?status=bogus", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", resp.StatusCode)
	}
}

func TestGetTicket(t *testing.T) {
	svc := &fakeService{tickets: []*ticket.Ticket{{ID: 7, Question: "q"}}}
	srv := newTestServer(t, svc, "")

	resp := get(t, srv.URL+"/api/tickets/7", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got ticket.Ticket
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != 7 {
		t.Errorf("expected ticket 7, got %+v", got)
	}

	if resp := get(t, srv.URL+"/api/tickets/999", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if resp := get(t, srv.URL+"/api/tickets/abc", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetTicket_StoreFailureIsNot404(t *testing.T) {
	svc := &fakeService{getErr: errors.New("disk gone")}
	srv := newTestServer(t, svc, "")

	resp := get(t, srv.URL+"/api/tickets/7", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	svc := &fakeService{tickets: []*ticket.Ticket{
		{ID: 1}, {ID: 2, Answered: true}, {ID: 3},
	}}
	srv := newTestServer(t, svc, "")

	resp := get(t, srv.URL+"/api/stats", "")
	var stats map[string]int
	json.NewDecoder(resp.Body).Decode(&stats)
	if stats["total"] != 3 || stats["open"] != 2 || stats["answered"] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestSubmitTicket(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc, "")

	body := strings.NewReader(`{"user_id": "300", "user_name": "Bob", "chat_id": "300", "channel": "telegram", "question": "help"}`)
	resp, err := http.Post(srv.URL+"/api/tickets", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var got map[string]any
	json.NewDecoder(resp.Body).Decode(&got)
	if got["ticket_id"] != float64(1) {
		t.Errorf("expected ticket_id 1, got %v", got)
	}
	if len(svc.submitted) != 1 || svc.submitted[0].Question != "help" {
		t.Errorf("submit not forwarded: %v", svc.submitted)
	}
}

func TestSubmitTicket_RequiresQuestion(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, "")

	resp, err := http.Post(srv.URL+"/api/tickets", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLogsWithoutBuffer(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, "")

	resp := get(t, srv.URL+"/api/logs", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(b)) != "[]" {
		t.Errorf("expected empty array, got %s", b)
	}
}
