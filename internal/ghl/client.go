// Package ghl provides an HTTP client for the GoHighLevel (LeadConnector) API:
// the OAuth token endpoint and the contacts API used for lead export.
package ghl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fsbo_finder_backend/platform/config"
	"fsbo_finder_backend/platform/logger"
)

const (
	// apiVersion is required by GHL on every call.
	apiVersion = "2021-07-28"

	defaultHTTPTimeout = 15 * time.Second
)

// TokenResponse is the OAuth token endpoint response for both the
// authorization-code exchange and the refresh grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	LocationID   string `json:"locationId"`
	CompanyID    string `json:"companyId"`
	UserType     string `json:"userType"`
}

// Contact is the subset of a GHL contact this service reads back.
type Contact struct {
	ID    string   `json:"id"`
	Phone string   `json:"phone"`
	Tags  []string `json:"tags"`
}

// ContactPayload is the create/update body for a GHL contact.
type ContactPayload struct {
	FirstName    string                 `json:"firstName"`
	LastName     string                 `json:"lastName"`
	Name         string                 `json:"name"`
	Phone        *string                `json:"phone"`
	Address1     string                 `json:"address1"`
	City         string                 `json:"city"`
	State        string                 `json:"state"`
	PostalCode   string                 `json:"postalCode"`
	Website      string                 `json:"website"`
	Country      string                 `json:"country"`
	CompanyName  string                 `json:"companyName"`
	Source       string                 `json:"source"`
	Tags         []string               `json:"tags"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
	LocationID   string                 `json:"locationId,omitempty"`
}

// Client handles GHL requests.
type Client struct {
	httpClient   *http.Client
	apiBase      string
	clientID     string
	clientSecret string
	redirectURI  string
	log          *logger.Logger
}

// New creates a new GHL client.
func New(cfg config.GHLConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		apiBase:      strings.TrimRight(cfg.GetGHLAPIBase(), "/"),
		clientID:     cfg.GetGHLClientID(),
		clientSecret: cfg.GetGHLClientSecret(),
		redirectURI:  cfg.GetGHLRedirectURI(),
		log:          log,
	}
}

// ExchangeCode exchanges an OAuth authorization code for an initial token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("user_type", "Location")
	form.Set("redirect_uri", c.redirectURI)

	return c.postTokenForm(ctx, form)
}

// RefreshToken trades a refresh token for a new access/refresh pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return c.postTokenForm(ctx, form)
}

func (c *Client) postTokenForm(ctx context.Context, form url.Values) (TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, err
	}

	basicAuth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+basicAuth)
	req.Header.Set("Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TokenResponse{}, readAPIError("oauth token", resp)
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return TokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}
	return token, nil
}

type contactSearchRequest struct {
	LocationID string                `json:"locationId"`
	Page       int                   `json:"page"`
	PageLimit  int                   `json:"pageLimit"`
	Filters    []contactSearchFilter `json:"filters"`
}

type contactSearchFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type contactSearchResponse struct {
	Contacts []Contact `json:"contacts"`
}

// SearchContactByPhone looks up at most one contact with an exact phone match,
// scoped to the given location. Returns nil when nothing matches.
func (c *Client) SearchContactByPhone(ctx context.Context, accessToken, locationID, phone string) (*Contact, error) {
	body := contactSearchRequest{
		LocationID: locationID,
		Page:       1,
		PageLimit:  1,
		Filters: []contactSearchFilter{
			{Field: "phone", Operator: "eq", Value: phone},
		},
	}

	var result contactSearchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/contacts/search", accessToken, body, &result); err != nil {
		return nil, err
	}

	if len(result.Contacts) == 0 {
		return nil, nil
	}
	return &result.Contacts[0], nil
}

type contactEnvelope struct {
	Contact Contact `json:"contact"`
}

// CreateContact creates a new contact and returns its id.
func (c *Client) CreateContact(ctx context.Context, accessToken string, payload ContactPayload) (string, error) {
	var result contactEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/contacts/", accessToken, payload, &result); err != nil {
		return "", err
	}
	return result.Contact.ID, nil
}

// UpdateContact overwrites an existing contact's fields. The payload must not
// carry a locationId on update.
func (c *Client) UpdateContact(ctx context.Context, accessToken, contactID string, payload ContactPayload) error {
	payload.LocationID = ""
	return c.doJSON(ctx, http.MethodPut, "/contacts/"+contactID, accessToken, payload, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("ghl request failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(method+" "+path, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readAPIError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
