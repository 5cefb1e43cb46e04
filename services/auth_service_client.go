// services/auth_service_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// AuthGate is the authorization boundary: a session token in, the caller's
// identity (or nil when unauthenticated) out.
type AuthGate interface {
	GetSession(ctx context.Context, token string) (*AuthSession, error)
}

const RoleAdmin = "admin"

type AuthUser struct {
	Role  string `json:"role"`
	Email string `json:"email"`
}

type AuthSession struct {
	User AuthUser `json:"user"`
}

// AuthServiceClient queries the external auth service for the caller's
// session.
type AuthServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewAuthServiceClient(baseURL, token string) *AuthServiceClient {
	return &AuthServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetSession calls /session on the auth service. A 401/404 means "no
// session" — that is a nil result, not an error.
func (c *AuthServiceClient) GetSession(ctx context.Context, token string) (*AuthSession, error) {
	url := fmt.Sprintf("%s/auth/session", c.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, nil
	default:
		log.Printf("AuthService /session returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("auth session lookup failed: %d", resp.StatusCode)
	}

	var out AuthSession
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
