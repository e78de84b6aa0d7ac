package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// PublicProfile is the subset of the external user service's profile the hub
// attaches to outgoing messages.
type PublicProfile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"fullName"`
	Avatar   string    `json:"avatar,omitempty"`
}

// Sentinel returns the fallback sender used when a profile lookup fails.
// Message delivery never waits on, or fails with, the profile service.
func Sentinel(userID uuid.UUID) PublicProfile {
	return PublicProfile{
		ID:       userID,
		Username: "Unknown",
		FullName: "Unknown User",
	}
}

// Client calls the external profile service. Lookups carry the caller's own
// bearer token and are bounded by the client timeout.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// Lookup fetches one public profile, forwarding the given bearer token.
func (c *Client) Lookup(ctx context.Context, userID uuid.UUID, bearerToken string) (PublicProfile, error) {
	var out PublicProfile
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(bearerToken).
		SetResult(&out).
		Get(fmt.Sprintf("/users/%s", userID))
	if err != nil {
		return PublicProfile{}, err
	}
	if resp.IsError() {
		return PublicProfile{}, fmt.Errorf("profile service returned %d", resp.StatusCode())
	}
	return out, nil
}

// Lookuper lets services accept a fake in tests.
type Lookuper interface {
	Lookup(ctx context.Context, userID uuid.UUID, bearerToken string) (PublicProfile, error)
}
