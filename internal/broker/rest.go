package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/signal-lab/internal/config"
	"github.com/yourusername/signal-lab/internal/models"
)

// APIError is a non-success response from the venue API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker API error: %s (status: %d)", e.Message, e.StatusCode)
}

// AuthenticationError represents a login failure
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Account string `json:"account"`
}

type dealsResponse struct {
	Deals []models.Deal `json:"deals"`
}

// RESTSession talks to a terminal bridge exposing POST /session,
// GET /deals and DELETE /session.
type RESTSession struct {
	http    *HTTPClient
	baseURL string
	creds   loginRequest

	mu      sync.RWMutex
	token   string
	account string
}

// NewRESTSession creates a disconnected REST session
func NewRESTSession(cfg config.BrokerConfig, client *HTTPClient) *RESTSession {
	return &RESTSession{
		http:    client,
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		creds:   loginRequest{Login: cfg.Login, Password: cfg.Password, Server: cfg.Server},
	}
}

// Venue names the session kind
func (s *RESTSession) Venue() string { return "rest" }

// Account returns the account reported at login
func (s *RESTSession) Account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// Connect logs in and stores the session token
func (s *RESTSession) Connect(ctx context.Context) error {
	body, err := json.Marshal(s.creds)
	if err != nil {
		return err
	}
	resp, err := s.http.Post(ctx, s.baseURL+"/session", "application/json", bytes.NewReader(body))
	if err != nil {
		return &AuthenticationError{Message: "login request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthenticationError{Message: fmt.Sprintf("login rejected for %s@%s", s.creds.Login, s.creds.Server)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apiError(resp)
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return &AuthenticationError{Message: "invalid login response", Cause: err}
	}
	if login.Token == "" {
		return &AuthenticationError{Message: "no session token in response"}
	}

	s.mu.Lock()
	s.token = login.Token
	s.account = login.Account
	s.mu.Unlock()
	return nil
}

// FetchDeals retrieves the deal history. The pattern is sent as the group
// filter and applied again locally.
func (s *RESTSession) FetchDeals(ctx context.Context, symbolPattern string, start, end time.Time) ([]models.Deal, error) {
	token := s.currentToken()
	if token == "" {
		return nil, models.ErrSessionClosed
	}

	q := url.Values{}
	q.Set("group", symbolPattern)
	q.Set("from", start.UTC().Format(time.RFC3339))
	q.Set("to", end.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/deals?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, models.ErrSessionClosed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var payload dealsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode deals: %w", err)
	}
	return filterDeals(payload.Deals, symbolPattern, start, end), nil
}

// Close logs out; closing a disconnected session is a no-op
func (s *RESTSession) Close(ctx context.Context) error {
	token := s.currentToken()
	if token == "" {
		return nil
	}
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/session", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusUnauthorized {
		return apiError(resp)
	}
	return s.http.Close()
}

func (s *RESTSession) currentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
