package ghl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fsbo_finder_backend/platform/logger"
)

type testGHLConfig struct {
	apiBase string
}

func (c testGHLConfig) GetGHLClientID() string        { return "client-id" }
func (c testGHLConfig) GetGHLClientSecret() string    { return "client-secret" }
func (c testGHLConfig) GetGHLRedirectURI() string     { return "https://app.example.com/callback" }
func (c testGHLConfig) GetGHLAPIBase() string         { return c.apiBase }
func (c testGHLConfig) GetGHLMarketplaceBase() string { return "https://marketplace.example.com" }

func newTestClient(serverURL string) *Client {
	return New(testGHLConfig{apiBase: serverURL}, logger.New("development"))
}

func TestExchangeCodeSendsFormAndBasicAuth(t *testing.T) {
	var gotAuth, gotVersion, gotContentType string
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Version")
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"grant_type":   r.PostFormValue("grant_type"),
			"code":         r.PostFormValue("code"),
			"user_type":    r.PostFormValue("user_type"),
			"redirect_uri": r.PostFormValue("redirect_uri"),
		}
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresIn:    86400,
			LocationID:   "loc-1",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client-id:client-secret"))
	if gotAuth != wantAuth {
		t.Fatalf("authorization header: %q", gotAuth)
	}
	if gotVersion != "2021-07-28" {
		t.Fatalf("version header: %q", gotVersion)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("content type: %q", gotContentType)
	}
	if gotForm["grant_type"] != "authorization_code" || gotForm["code"] != "auth-code" {
		t.Fatalf("form: %v", gotForm)
	}
	if gotForm["user_type"] != "Location" {
		t.Fatalf("expected Location user_type, got %q", gotForm["user_type"])
	}
	if resp.LocationID != "loc-1" {
		t.Fatalf("response: %+v", resp)
	}
}

func TestRefreshTokenGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostFormValue("grant_type") != "refresh_token" {
			t.Fatalf("grant_type: %q", r.PostFormValue("grant_type"))
		}
		if r.PostFormValue("refresh_token") != "old-refresh" {
			t.Fatalf("refresh_token: %q", r.PostFormValue("refresh_token"))
		}
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "new", RefreshToken: "newer", ExpiresIn: 86400})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.RefreshToken(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resp.AccessToken != "new" {
		t.Fatalf("response: %+v", resp)
	}
}

func TestExchangeCodeErrorIncludesBodySnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.ExchangeCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "invalid_grant") || !strings.Contains(got, "400") {
		t.Fatalf("expected status and body in error, got %q", got)
	}
}

func TestSearchContactByPhoneFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contacts/search" {
			t.Fatalf("path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Fatalf("authorization: %q", got)
		}

		var req contactSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.PageLimit != 1 || len(req.Filters) != 1 {
			t.Fatalf("request: %+v", req)
		}
		if req.Filters[0].Field != "phone" || req.Filters[0].Operator != "eq" {
			t.Fatalf("filter: %+v", req.Filters[0])
		}

		_ = json.NewEncoder(w).Encode(contactSearchResponse{Contacts: []Contact{{ID: "c-1", Phone: req.Filters[0].Value}}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	contact, err := client.SearchContactByPhone(context.Background(), "token-1", "loc-1", "+15551234567")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if contact == nil || contact.ID != "c-1" {
		t.Fatalf("contact: %+v", contact)
	}
}

func TestSearchContactByPhoneNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(contactSearchResponse{})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	contact, err := client.SearchContactByPhone(context.Background(), "token-1", "loc-1", "+15551234567")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if contact != nil {
		t.Fatalf("expected nil for no match, got %+v", contact)
	}
}

func TestUpdateContactStripsLocationID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/contacts/c-9" {
			t.Fatalf("%s %s", r.Method, r.URL.Path)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := payload["locationId"]; ok {
			t.Fatal("expected locationId omitted on update")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.UpdateContact(context.Background(), "token-1", "c-9", ContactPayload{FirstName: "FSBO", LocationID: "loc-1"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestCreateContactReturnsID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/contacts/" {
			t.Fatalf("%s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(contactEnvelope{Contact: Contact{ID: "c-new"}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.CreateContact(context.Background(), "token-1", ContactPayload{FirstName: "FSBO"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "c-new" {
		t.Fatalf("id: %q", id)
	}
}
