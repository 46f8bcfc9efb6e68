// Package client calls the Meet.AI procedures over HTTP and follows the
// change event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meetai/meetai/internal/auth"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/server"
	"github.com/meetai/meetai/internal/version"
)

const defaultTimeout = 30 * time.Second

// Client is an HTTP client for the procedure API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the session token sent as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, log *logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log.Sub("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the session token, if any.
func (c *Client) Token() string { return c.token }

// SetToken replaces the session token.
func (c *Client) SetToken(token string) { c.token = token }

// get calls a query procedure.
func (c *Client) get(ctx context.Context, procedure string, params url.Values, out any) error {
	u := c.baseURL + "/api/" + procedure
	if q := params.Encode(); q != "" {
		u += "?" + q
	}
	return c.do(ctx, http.MethodGet, u, nil, out)
}

// post calls a mutation procedure.
func (c *Client) post(ctx context.Context, procedure string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/api/"+procedure, body, out)
}

// do performs the request and decodes either the result into out or the
// error envelope into a *domain.Error.
func (c *Client) do(ctx context.Context, method, u string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.Error{Kind: domain.KindServer, Message: "Could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.Error{Kind: domain.KindServer, Message: "Could not read the server response", Err: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("url", u).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("procedure call")

	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &domain.Error{Kind: domain.KindServer, Message: "Unexpected server response", Err: err}
	}
	return nil
}

// decodeError turns an error response into a tagged error. Responses that
// are not an envelope are classified by status code.
func decodeError(status int, body []byte) error {
	var env server.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		return env.Error.Err()
	}
	kind := domain.KindServer
	switch status {
	case http.StatusBadRequest:
		kind = domain.KindValidation
	case http.StatusUnauthorized:
		kind = domain.KindUnauthorized
	case http.StatusForbidden:
		kind = domain.KindPlanLimit
	case http.StatusNotFound:
		kind = domain.KindNotFound
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &domain.Error{Kind: kind, Message: msg, Err: fmt.Errorf("HTTP %d", status)}
}

// Auth

// SignUp creates an account and stores the new session token.
func (c *Client) SignUp(ctx context.Context, in auth.SignUpInput) (auth.Result, error) {
	var res auth.Result
	if err := c.post(ctx, "auth.signUp", in, &res); err != nil {
		return auth.Result{}, err
	}
	c.token = res.Token
	return res, nil
}

// SignIn starts a session and stores its token.
func (c *Client) SignIn(ctx context.Context, email, password string) (auth.Result, error) {
	var res auth.Result
	in := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "auth.signIn", in, &res); err != nil {
		return auth.Result{}, err
	}
	c.token = res.Token
	return res, nil
}

// SignOut ends the session and forgets its token.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.post(ctx, "auth.signOut", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Session returns the signed-in user.
func (c *Client) Session(ctx context.Context) (domain.User, error) {
	var res struct {
		User domain.User `json:"user"`
	}
	if err := c.get(ctx, "auth.session", nil, &res); err != nil {
		return domain.User{}, err
	}
	return res.User, nil
}

// Agents

func (c *Client) ListAgents(ctx context.Context, f filter.Filter) (domain.ListResult[domain.AgentListItem], error) {
	var res domain.ListResult[domain.AgentListItem]
	err := c.get(ctx, "agents.getMany", filter.Values(f.Scoped(domain.EntityAgents)), &res)
	return res, err
}

func (c *Client) GetAgent(ctx context.Context, id string) (domain.AgentListItem, error) {
	var res domain.AgentListItem
	err := c.get(ctx, "agents.getOne", url.Values{"id": {id}}, &res)
	return res, err
}

func (c *Client) CreateAgent(ctx context.Context, in domain.AgentInput) (domain.Agent, error) {
	var res domain.Agent
	err := c.post(ctx, "agents.create", in, &res)
	return res, err
}

func (c *Client) UpdateAgent(ctx context.Context, id string, in domain.AgentInput) (domain.Agent, error) {
	var res domain.Agent
	body := struct {
		ID string `json:"id"`
		domain.AgentInput
	}{id, in}
	err := c.post(ctx, "agents.update", body, &res)
	return res, err
}

// Meetings

func (c *Client) ListMeetings(ctx context.Context, f filter.Filter) (domain.ListResult[domain.MeetingListItem], error) {
	var res domain.ListResult[domain.MeetingListItem]
	err := c.get(ctx, "meetings.getMany", filter.Values(f), &res)
	return res, err
}

func (c *Client) GetMeeting(ctx context.Context, id string) (domain.MeetingListItem, error) {
	var res domain.MeetingListItem
	err := c.get(ctx, "meetings.getOne", url.Values{"id": {id}}, &res)
	return res, err
}

func (c *Client) CreateMeeting(ctx context.Context, in domain.MeetingInput) (domain.Meeting, error) {
	var res domain.Meeting
	err := c.post(ctx, "meetings.create", in, &res)
	return res, err
}

func (c *Client) UpdateMeeting(ctx context.Context, id string, in domain.MeetingInput) (domain.Meeting, error) {
	var res domain.Meeting
	body := struct {
		ID string `json:"id"`
		domain.MeetingInput
	}{id, in}
	err := c.post(ctx, "meetings.update", body, &res)
	return res, err
}

// Premium

// FreeUsage returns the free tier consumption, or nil for premium users.
func (c *Client) FreeUsage(ctx context.Context) (*domain.FreeUsage, error) {
	var res *domain.FreeUsage
	err := c.get(ctx, "premium.getFreeUsage", nil, &res)
	return res, err
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var res []domain.Product
	err := c.get(ctx, "premium.getProducts", nil, &res)
	return res, err
}

// CurrentSubscription returns the subscribed product, or nil on the free tier.
func (c *Client) CurrentSubscription(ctx context.Context) (*domain.Product, error) {
	var res *domain.Product
	err := c.get(ctx, "premium.getCurrentSubscription", nil, &res)
	return res, err
}

// CheckoutURL returns the billing provider page that subscribes to productID.
func (c *Client) CheckoutURL(ctx context.Context, productID string) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	err := c.post(ctx, "premium.checkout", map[string]string{"productId": productID}, &res)
	return res.URL, err
}

// PortalURL returns the billing provider page that manages the subscription.
func (c *Client) PortalURL(ctx context.Context) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	err := c.post(ctx, "premium.portal", nil, &res)
	return res.URL, err
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	var res server.HealthResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/health", nil, &res); err != nil {
		return err
	}
	if res.Status != "ok" {
		return errors.New("server reported status " + res.Status)
	}
	return nil
}
