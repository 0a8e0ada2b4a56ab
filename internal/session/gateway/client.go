package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/domain"
	"github.com/afyapapo/sessioncore/pkg/jwtx"
	"golang.org/x/time/rate"
)

// Client talks to the identity provider's GraphQL endpoint.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Tokens supplies the bearer when the context carries none.
	Tokens TokenSource

	// Limiter throttles outgoing calls when set.
	Limiter *rate.Limiter
}

var _ Gateway = (*Client)(nil)

// NewClient creates a client with a bounded HTTP timeout.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Endpoint:   strings.TrimSuffix(endpoint, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do posts one operation and decodes its data into target. GraphQL errors are
// logged and otherwise tolerated so partial data still decodes.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, authenticated bool, target any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return transportError(op, err)
		}
	}

	body, err := json.Marshal(graphQLRequest{Query: query, OperationName: op, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authenticated {
		if token, ok := c.bearer(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transportError(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return transportError(op, fmt.Errorf("failed to decode response: %w", err))
	}

	for _, e := range envelope.Errors {
		c.Logger.Debug("graphql error", "op", op, "message", e.Message)
	}

	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return transportError(op, fmt.Errorf("failed to decode data: %w", err))
	}
	return nil
}

func (c *Client) bearer(ctx context.Context) (string, bool) {
	if token, ok := AccessTokenFromContext(ctx); ok {
		return token, true
	}
	if c.Tokens != nil {
		return c.Tokens(ctx)
	}
	return "", false
}

func (c *Client) Login(ctx context.Context, creds domain.LoginCredentials) (*LoginResult, error) {
	userType := creds.UserType
	if userType == "" {
		userType = domain.RoleHospitalAdmin
	}

	var data adminLoginData
	err := c.do(ctx, "AdminLogin", adminLoginMutation, map[string]any{
		"input": adminLoginInput{
			Username:   creds.Username,
			Password:   creds.Password,
			UserType:   userType,
			DeviceInfo: creds.DeviceInfo,
		},
	}, false, &data)
	if err != nil {
		return nil, err
	}

	res := data.AdminLogin
	if res == nil || !res.Success {
		rej := &Error{Op: "login"}
		if res != nil {
			rej.Messages = res.Errors
		}
		return nil, rej
	}

	tokens, err := c.credentials(res.tokenPayload, "")
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: res.User, Credentials: tokens}, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	var data refreshTokenData
	err := c.do(ctx, "RefreshToken", refreshTokenMutation, map[string]any{
		"refreshToken": refreshToken,
	}, false, &data)
	if err != nil {
		return nil, err
	}

	res := data.RefreshToken
	if res == nil || !res.Success {
		rej := &Error{Op: "refresh"}
		if res != nil {
			rej.Messages = res.Errors
		}
		return nil, rej
	}

	creds, err := c.credentials(*res, refreshToken)
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

func (c *Client) Logout(ctx context.Context) error {
	var data logoutData
	if err := c.do(ctx, "Logout", logoutMutation, nil, true, &data); err != nil {
		return err
	}
	if data.Logout == nil || !data.Logout.Success {
		rej := &Error{Op: "logout"}
		if data.Logout != nil && data.Logout.Message != "" {
			rej.Messages = []string{data.Logout.Message}
		}
		return rej
	}
	return nil
}

func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var data currentUserData
	if err := c.do(ctx, "GetCurrentUser", currentUserQuery, nil, true, &data); err != nil {
		return nil, err
	}
	return data.Me, nil
}

// credentials normalizes a token payload. When the provider leaves out
// expiresAt the access token's own exp claim is used. previousRefresh is
// kept when the provider does not rotate the refresh token.
func (c *Client) credentials(p tokenPayload, previousRefresh string) (domain.Credentials, error) {
	if p.AccessToken == "" {
		return domain.Credentials{}, ErrMissingTokens
	}

	refresh := p.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	expiresAt, ok := parseExpiry(p.ExpiresAt)
	if !ok {
		exp, err := jwtx.ExpiresAt(p.AccessToken)
		if err != nil {
			c.Logger.Warn("no usable expiry in token response", "expires_at", p.ExpiresAt, "error", err)
		} else {
			expiresAt = exp
		}
	}

	return domain.Credentials{
		AccessToken:  p.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}
