package email

import (
	"strings"
	"testing"
)

func TestRefreshAlertBodyEscapesFailureReasons(t *testing.T) {
	body := refreshAlertBody(3, []RefreshFailure{
		{LocationID: "loc-1", Reason: `invalid_grant: <script>alert("x")</script>`},
	})

	if strings.Contains(body, "<script>") {
		t.Fatal("expected failure reason to be escaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Fatalf("expected escaped reason in body, got %q", body)
	}
	if !strings.Contains(body, "3 refreshed and 1 failed") {
		t.Fatalf("expected sweep counts in body, got %q", body)
	}
}

func TestNewAlertSenderNilWhenDisabled(t *testing.T) {
	if s := NewAlertSender(disabledAlertConfig{}); s != nil {
		t.Fatal("expected nil sender when alerts are disabled")
	}
}

type disabledAlertConfig struct{}

func (disabledAlertConfig) GetAlertsEnabled() bool      { return false }
func (disabledAlertConfig) GetSMTPHost() string         { return "" }
func (disabledAlertConfig) GetSMTPPort() int            { return 0 }
func (disabledAlertConfig) GetSMTPUsername() string     { return "" }
func (disabledAlertConfig) GetSMTPPassword() string     { return "" }
func (disabledAlertConfig) GetAlertFromName() string    { return "" }
func (disabledAlertConfig) GetAlertFromAddress() string { return "" }
func (disabledAlertConfig) GetAlertToAddress() string   { return "" }
