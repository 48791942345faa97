// Package client is a Go client for the jinjjahalgae backend API. Authorized
// calls go through a session-expiry retry wrapper that refreshes the access
// token between attempts and sends the caller back to the auth page when the
// session cannot be recovered.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	nav        Navigator
	retry      RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNavigator installs the redirect target for terminal session expiry.
// Without one, expiry clears the tokens but performs no redirect.
func WithNavigator(nav Navigator) Option {
	return func(c *Client) { c.nav = nav }
}

// WithRetryConfig overrides the default retry policy for authorized calls.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenPairResponse is the body of login and refresh responses.
type TokenPairResponse struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
	Nickname         string `json:"nickname"`
}

// UserInfo is the body of GET /api/auth/me.
type UserInfo struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

// Contract is the contract detail shape returned by the backend.
type Contract struct {
	ID              string       `json:"id"`
	CreatorID       string       `json:"creator_id"`
	CreatorNickname string       `json:"creator_nickname"`
	Title           string       `json:"title"`
	Goal            string       `json:"goal"`
	Reward          string       `json:"reward"`
	Penalty         string       `json:"penalty"`
	OneOff          bool         `json:"one_off"`
	StartDate       string       `json:"start_date"`
	EndDate         string       `json:"end_date"`
	TargetProofs    int          `json:"target_proofs"`
	Status          string       `json:"status"`
	Supervisors     []Supervisor `json:"supervisors"`
	PeriodPercent   float64      `json:"period_percent"`
	TotalProofs     int          `json:"total_proofs"`
	ApprovedProofs  int          `json:"approved_proofs"`
	PendingProofs   int          `json:"pending_proofs"`
	CreatedAt       string       `json:"created_at"`
	UpdatedAt       string       `json:"updated_at"`
}

type Supervisor struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	SignedAt string `json:"signed_at,omitempty"`
}

// ContractSummary is one entry of GET /api/contracts.
type ContractSummary struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Status        string  `json:"status"`
	OneOff        bool    `json:"one_off"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	PeriodPercent float64 `json:"period_percent"`
}

// Proof is the proof shape returned by the backend.
type Proof struct {
	ID         string     `json:"id"`
	ContractID string     `json:"contract_id"`
	UserID     string     `json:"user_id"`
	ImageURL   string     `json:"image_url"`
	Comment    string     `json:"comment,omitempty"`
	ProofDate  string     `json:"proof_date"`
	Status     string     `json:"status"`
	Feedbacks  []Feedback `json:"feedbacks,omitempty"`
	CreatedAt  string     `json:"created_at"`
}

type Feedback struct {
	SupervisorID string `json:"supervisor_id"`
	Status       string `json:"status"`
	Comment      string `json:"comment,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// CreateContractInput is the body of POST /api/contracts.
type CreateContractInput struct {
	Title        string                 `json:"title"`
	Goal         string                 `json:"goal,omitempty"`
	Reward       string                 `json:"reward,omitempty"`
	Penalty      string                 `json:"penalty,omitempty"`
	OneOff       bool                   `json:"one_off"`
	StartDate    string                 `json:"start_date"`
	EndDate      string                 `json:"end_date"`
	TargetProofs int                    `json:"target_proofs"`
	Supervisors  []SupervisorInviteSpec `json:"supervisors"`
}

type SupervisorInviteSpec struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

// Login authenticates with the backend and stores the returned token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPairResponse, error) {
	body := map[string]string{"username": username, "password": password}

	var out TokenPairResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out, false); err != nil {
		return nil, err
	}

	c.tokens.SetTokens(out.AccessToken, out.RefreshToken)
	return &out, nil
}

// Refresh exchanges the stored refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context) error {
	refresh := c.tokens.RefreshToken()
	if refresh == "" {
		return &APIError{Status: http.StatusUnauthorized, Message: "no refresh token"}
	}

	body := map[string]string{"refresh_token": refresh}

	var out TokenPairResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", body, &out, false); err != nil {
		return err
	}

	c.tokens.SetTokens(out.AccessToken, out.RefreshToken)
	return nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	return authorized(c, func(ctx context.Context) (*UserInfo, error) {
		var out UserInfo
		if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out, true); err != nil {
			return nil, err
		}
		return &out, nil
	})(ctx)
}

// CreateContract creates a contract in PENDING state.
func (c *Client) CreateContract(ctx context.Context, in CreateContractInput) (*Contract, error) {
	return authorized(c, func(ctx context.Context) (*Contract, error) {
		var out Contract
		if err := c.do(ctx, http.MethodPost, "/api/contracts", in, &out, true); err != nil {
			return nil, err
		}
		return &out, nil
	})(ctx)
}

// ListContracts returns the contracts the caller created or supervises.
func (c *Client) ListContracts(ctx context.Context) ([]ContractSummary, error) {
	return authorized(c, func(ctx context.Context) ([]ContractSummary, error) {
		var out struct {
			Contracts []ContractSummary `json:"contracts"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/contracts", nil, &out, true); err != nil {
			return nil, err
		}
		return out.Contracts, nil
	})(ctx)
}

// GetContract returns one contract with its computed period percent.
func (c *Client) GetContract(ctx context.Context, id string) (*Contract, error) {
	return authorized(c, func(ctx context.Context) (*Contract, error) {
		var out Contract
		if err := c.do(ctx, http.MethodGet, "/api/contracts/"+id, nil, &out, true); err != nil {
			return nil, err
		}
		return &out, nil
	})(ctx)
}

// SignContract signs a contract as an invited supervisor.
func (c *Client) SignContract(ctx context.Context, id string) (*Contract, error) {
	return authorized(c, func(ctx context.Context) (*Contract, error) {
		var out Contract
		if err := c.do(ctx, http.MethodPost, "/api/contracts/"+id+"/sign", nil, &out, true); err != nil {
			return nil, err
		}
		return &out, nil
	})(ctx)
}

// WithdrawContract deletes a pending contract or abandons a running one.
func (c *Client) WithdrawContract(ctx context.Context, id string) error {
	_, err := authorized(c, func(ctx context.Context) (struct{}, error) {
		err := c.do(ctx, http.MethodDelete, "/api/contracts/"+id, nil, nil, true)
		return struct{}{}, err
	})(ctx)
	return err
}

// ListProofs returns the proofs of a contract, oldest first.
func (c *Client) ListProofs(ctx context.Context, contractID string) ([]Proof, error) {
	return authorized(c, func(ctx context.Context) ([]Proof, error) {
		var out struct {
			Proofs []Proof `json:"proofs"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/contracts/"+contractID+"/proofs", nil, &out, true); err != nil {
			return nil, err
		}
		return out.Proofs, nil
	})(ctx)
}

// DeleteProof retracts one of the caller's own proofs before any
// supervisor has voted on it.
func (c *Client) DeleteProof(ctx context.Context, proofID string) error {
	_, err := authorized(c, func(ctx context.Context) (struct{}, error) {
		err := c.do(ctx, http.MethodDelete, "/api/proofs/"+proofID, nil, nil, true)
		return struct{}{}, err
	})(ctx)
	return err
}

// ApproveProof records an approval vote on a proof.
func (c *Client) ApproveProof(ctx context.Context, proofID, comment string) (*Proof, error) {
	return c.vote(ctx, proofID, "approve", comment)
}

// RejectProof records a rejection vote on a proof.
func (c *Client) RejectProof(ctx context.Context, proofID, comment string) (*Proof, error) {
	return c.vote(ctx, proofID, "reject", comment)
}

func (c *Client) vote(ctx context.Context, proofID, action, comment string) (*Proof, error) {
	var body any
	if comment != "" {
		body = map[string]string{"comment": comment}
	}
	return authorized(c, func(ctx context.Context) (*Proof, error) {
		var out Proof
		if err := c.do(ctx, http.MethodPost, "/api/proofs/"+proofID+"/"+action, body, &out, true); err != nil {
			return nil, err
		}
		return &out, nil
	})(ctx)
}

// authorized wraps fn with the session-expiry retry policy. Before each
// re-attempt the refresh endpoint is tried so an expired access token can be
// replaced without surfacing the 401 to the caller.
func authorized[T any](c *Client, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	cfg := c.retry
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(count int) {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = c.Refresh(refreshCtx)
		cancel()
		if onRetry != nil {
			onRetry(count)
		}
	}
	return NewRetryableCall(fn, cfg, c.tokens, c.nav)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, auth bool) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status:  resp.StatusCode,
			Ok:      false,
			Message: errorMessage(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w, body: %s", err, string(respBody))
	}
	return nil
}

// errorMessage pulls the backend's {"error": ...} message out of a failure
// body, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
