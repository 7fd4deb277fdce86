package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/identity-platform/internal/config"
	"github.com/identity-platform/internal/domain"
)

// CreateRequest is the payload posted to a downstream profile service after
// the identity commit. The profile draft fields are forwarded opaquely.
type CreateRequest struct {
	SubjectID     string          `json:"subject_id"`
	Email         string          `json:"email"`
	ProfileFields json.RawMessage `json:"profile_fields"`
}

// PermanentError marks a downstream rejection that will not change on retry
// (4xx). It triggers compensation instead of further attempts.
type PermanentError struct {
	Status int
	Body   string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("profile service rejected request: status %d", e.Status)
}

// Client calls role-specific profile services over HTTP. Transient failures
// (connection errors, 5xx) are retried a small fixed number of times;
// validation rejections (4xx) are not.
type Client struct {
	httpClient *http.Client
	baseURLs   map[string]string
	maxRetries int
}

func NewClient(cfg config.ProfileServices) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURLs: map[string]string{
			domain.RoleUser:    cfg.UserBaseURL,
			domain.RolePartner: cfg.PartnerBaseURL,
		},
		maxRetries: cfg.MaxRetries,
	}
}

// Create posts the profile draft to the service owning the given role.
// Returns a *PermanentError for non-retryable rejections; any other error
// means the bounded retries were exhausted on transient failures.
func (c *Client) Create(ctx context.Context, role string, req *CreateRequest) error {
	base, ok := c.baseURLs[role]
	if !ok {
		return fmt.Errorf("no profile service for role %q: %w", role, domain.ErrBadRequest)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal profile request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		lastErr = c.post(ctx, base+"/profiles", body)
		if lastErr == nil {
			return nil
		}
		var perm *PermanentError
		if errors.As(lastErr, &perm) {
			return perm
		}
	}
	return fmt.Errorf("profile service unavailable after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("profile service call: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &PermanentError{Status: resp.StatusCode, Body: string(b)}
	default:
		return fmt.Errorf("profile service returned status %d", resp.StatusCode)
	}
}
