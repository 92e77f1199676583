// Package tridens implements the client for the Tridens Monetization
// API used by Kaizen Energy. It handles password authentication,
// customer and subscription resolution, and retrieval of daily usage
// events. The usage-events endpoint is not documented by the provider:
// unknown fields in responses are ignored and missing expected fields
// fail with a clear error.
package tridens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kaizen-energy/kaizend/internal/models"
)

const (
	// DefaultBaseURL is the hosted Tridens Monetization instance. Other
	// Tridens-based providers can be targeted via the base_url override.
	DefaultBaseURL = "https://app.tridenstechnology.com/monetization"

	// DefaultServiceType selects heat meter readings in usage queries.
	DefaultServiceType = "HEAT_METER_READ_SERVICE"

	requestTimeout = 30 * time.Second
)

// Config carries the credentials and provider coordinates for a Client.
type Config struct {
	BaseURL     string
	SiteCode    string
	Username    string
	Password    string
	ServiceType string
}

// Client talks to the Tridens Monetization API. The session token and
// the resolved customer identifiers are owned exclusively by the
// client; they live in memory only and are replaced wholesale whenever
// re-authentication happens.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *logrus.Logger

	mu             sync.Mutex
	token          *SessionToken
	customerID     string
	groupID        string
	balanceGroupID string
}

// NewClient creates a client for the given provider coordinates.
// Zero-valued BaseURL and ServiceType fall back to the hosted Tridens
// defaults.
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ServiceType == "" {
		cfg.ServiceType = DefaultServiceType
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

// Authenticate exchanges the configured credentials for a fresh session
// token and extracts the customer code claim from it. A 401/403 from
// the provider means bad credentials and surfaces as *AuthError.
func (c *Client) Authenticate(ctx context.Context) (*SessionToken, error) {
	endpoint := c.cfg.BaseURL + "/authenticate"

	payload, err := json.Marshal(map[string]string{
		"username":  c.cfg.Username,
		"password":  c.cfg.Password,
		"site_code": c.cfg.SiteCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.WithField("username", c.cfg.Username).Debug("Authenticating against Tridens")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "invalid credentials"}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    "unexpected status from auth endpoint",
		}
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Message: "unparsable auth response", Err: err}
	}

	raw := body.AccessToken
	if raw == "" {
		raw = body.Token
	}
	if raw == "" {
		return nil, &UpstreamError{Endpoint: endpoint, Message: "auth response carries no token field"}
	}

	token, err := ParseSessionToken(raw)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	return token, nil
}

// ensureToken returns the cached token, authenticating first when it is
// absent or past its expiry claim.
func (c *Client) ensureToken(ctx context.Context) (*SessionToken, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token.Valid(time.Now()) {
		return token, nil
	}
	return c.Authenticate(ctx)
}

// get performs an authorized GET and decodes the JSON response into
// out. A 401/403 triggers exactly one transparent re-authentication;
// if the retried request is rejected again the call fails with
// *AuthError and no further retry happens.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, endpoint, query, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		c.logger.WithField("endpoint", endpoint).Warn("Token rejected, re-authenticating")

		token, err = c.Authenticate(ctx)
		if err != nil {
			return err
		}
		resp, err = c.do(ctx, endpoint, query, token)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			return &AuthError{StatusCode: resp.StatusCode, Message: "token rejected after re-authentication"}
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    string(snippet),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Endpoint: endpoint, Message: "unparsable response body", Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint string, query url.Values, token *SessionToken) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+token.Raw)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Response-Type", "full")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	return resp, nil
}

type customerResponse struct {
	Groups []struct {
		ID apiID `json:"id"`
	} `json:"groups"`
}

type customerListResponse struct {
	Objects []struct {
		ID            apiID `json:"id"`
		Subscriptions []struct {
			BalanceGroup struct {
				ID apiID `json:"id"`
			} `json:"balance_group"`
		} `json:"subscriptions"`
	} `json:"objects"`
}

// resolveCustomer walks from the customer code embedded in the token to
// the concrete customer id the usage-events endpoint is scoped by:
// customer -> first group -> first customer under that group, which
// also carries the subscription's balance group. Resolution is cached
// for the lifetime of the process.
func (c *Client) resolveCustomer(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.customerID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return "", err
	}

	customerEndpoint := c.cfg.BaseURL + "/api/v1/customers/" + url.PathEscape(token.CustomerCode)
	var customer customerResponse
	if err := c.get(ctx, customerEndpoint, nil, &customer); err != nil {
		return "", err
	}
	if len(customer.Groups) == 0 || customer.Groups[0].ID == "" {
		return "", &UpstreamError{Endpoint: customerEndpoint, Message: "customer has no groups"}
	}
	groupID := string(customer.Groups[0].ID)

	listEndpoint := c.cfg.BaseURL + "/api/v1/customers"
	query := url.Values{"parent-group": {groupID}}
	var list customerListResponse
	if err := c.get(ctx, listEndpoint, query, &list); err != nil {
		return "", err
	}
	if len(list.Objects) == 0 || list.Objects[0].ID == "" {
		return "", &UpstreamError{Endpoint: listEndpoint, Message: "no customers under parent group"}
	}
	obj := list.Objects[0]
	if len(obj.Subscriptions) == 0 || obj.Subscriptions[0].BalanceGroup.ID == "" {
		return "", &UpstreamError{Endpoint: listEndpoint, Message: "customer has no subscription balance group"}
	}

	c.mu.Lock()
	c.groupID = groupID
	c.customerID = string(obj.ID)
	c.balanceGroupID = string(obj.Subscriptions[0].BalanceGroup.ID)
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"customer_id": string(obj.ID),
		"group_id":    groupID,
	}).Info("Resolved Tridens customer")

	return string(obj.ID), nil
}

type usageEventsResponse struct {
	Objects []struct {
		Quantity           *apiFloat `json:"quantity"`
		AmountWithDiscount *apiFloat `json:"amount_with_discount"`
		Fields             struct {
			TimeOfRead *apiID `json:"time_of_read"`
		} `json:"fields"`
	} `json:"objects"`
}

// FetchUsageEvents retrieves daily usage events for the configured
// customer between start and end. Zero time bounds are omitted from the
// query and leave the range open on that side. Events are returned in
// the order the provider sent them (newest first).
func (c *Client) FetchUsageEvents(ctx context.Context, start, end time.Time) ([]models.UsageEvent, error) {
	customerID, err := c.resolveCustomer(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.cfg.BaseURL + "/api/v1/customers/" + url.PathEscape(customerID) + "/usage-events"
	query := url.Values{
		"service_type": {c.cfg.ServiceType},
		"page":         {"1"},
		"count":        {"100"},
		"order-dir":    {"desc"},
	}
	if !start.IsZero() {
		query.Set("time-from", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if !end.IsZero() {
		query.Set("time-to", strconv.FormatInt(end.UnixMilli(), 10))
	}

	var body usageEventsResponse
	if err := c.get(ctx, endpoint, query, &body); err != nil {
		return nil, err
	}

	events := make([]models.UsageEvent, 0, len(body.Objects))
	for i, obj := range body.Objects {
		if obj.Quantity == nil {
			return nil, &UpstreamError{Endpoint: endpoint, Message: fmt.Sprintf("usage event %d missing quantity", i)}
		}
		if obj.AmountWithDiscount == nil {
			return nil, &UpstreamError{Endpoint: endpoint, Message: fmt.Sprintf("usage event %d missing amount_with_discount", i)}
		}
		if obj.Fields.TimeOfRead == nil {
			return nil, &UpstreamError{Endpoint: endpoint, Message: fmt.Sprintf("usage event %d missing fields.time_of_read", i)}
		}
		millis, err := strconv.ParseInt(string(*obj.Fields.TimeOfRead), 10, 64)
		if err != nil {
			return nil, &UpstreamError{
				Endpoint: endpoint,
				Message:  fmt.Sprintf("usage event %d has non-numeric time_of_read", i),
				Err:      err,
			}
		}
		events = append(events, models.UsageEvent{
			TimeOfRead: time.UnixMilli(millis),
			Quantity:   float64(*obj.Quantity),
			Cost:       float64(*obj.AmountWithDiscount),
		})
	}

	c.logger.WithField("events", len(events)).Debug("Fetched usage events")
	return events, nil
}
