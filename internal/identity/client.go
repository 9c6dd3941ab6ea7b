package identity

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/muni-admin/internal/config"
	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// apiError is the provider's error body
type apiError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
}

func (e *apiError) text() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Message
}

type listUsersResponse struct {
	Users []User `json:"users"`
}

type inviteRequest struct {
	Email string         `json:"email"`
	Data  map[string]any `json:"data,omitempty"`
}

// Client talks to a GoTrue-style admin API with the service key
type Client struct {
	lookup      *resty.Client
	invite      *resty.Client
	pageSize    int
	maxPages    int
	redirectURL string
}

// NewClient creates a new identity provider client
func NewClient(cfg config.IdentityConfig) *Client {
	lookup := newRestyClient(cfg).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})

	// Invitations send email; a retried POST could send it twice.
	invite := newRestyClient(cfg)

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	return &Client{
		lookup:      lookup,
		invite:      invite,
		pageSize:    cfg.PageSize,
		maxPages:    maxPages,
		redirectURL: cfg.InviteRedirectURL,
	}
}

func newRestyClient(cfg config.IdentityConfig) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.ServiceKey).
		SetAuthToken(cfg.ServiceKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

// FindUserByEmail walks the paginated admin user listing. The provider has
// no exact-match lookup by email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)

	for page := 1; page <= c.maxPages; page++ {
		var result listUsersResponse
		var apiErr apiError

		resp, err := c.lookup.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"page":     strconv.Itoa(page),
				"per_page": strconv.Itoa(c.pageSize),
			}).
			SetResult(&result).
			SetError(&apiErr).
			Get("/admin/users")
		if err != nil {
			return nil, fmt.Errorf("%w: list users: %v", domain.ErrProvider, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%w: list users: status %d: %s", domain.ErrProvider, resp.StatusCode(), apiErr.text())
		}

		for i := range result.Users {
			if NormalizeEmail(result.Users[i].Email) == email {
				return &result.Users[i], nil
			}
		}

		if len(result.Users) < c.pageSize {
			return nil, nil
		}
	}

	log.Warn().Int("max_pages", c.maxPages).Msg("identity user listing truncated")
	return nil, nil
}

// InviteUser sends an invitation through the provider
func (c *Client) InviteUser(ctx context.Context, email string, metadata map[string]any) (*User, error) {
	var user User
	var apiErr apiError

	req := c.invite.R().
		SetContext(ctx).
		SetBody(inviteRequest{Email: NormalizeEmail(email), Data: metadata}).
		SetResult(&user).
		SetError(&apiErr)
	if c.redirectURL != "" {
		req.SetQueryParam("redirect_to", c.redirectURL)
	}

	resp, err := req.Post("/invite")
	if err != nil {
		return nil, fmt.Errorf("%w: invite: %v", domain.ErrProvider, err)
	}
	if resp.IsError() {
		if isAlreadyRegistered(resp.StatusCode(), &apiErr) {
			return nil, domain.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("%w: invite: status %d: %s", domain.ErrProvider, resp.StatusCode(), apiErr.text())
	}

	log.Info().Str("user_id", user.ID.String()).Msg("invitation sent")
	return &user, nil
}

func isAlreadyRegistered(status int, e *apiError) bool {
	if e.ErrorCode == "email_exists" || e.ErrorCode == "user_already_exists" {
		return true
	}
	if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
		return strings.Contains(strings.ToLower(e.text()), "already been registered")
	}
	return false
}
