package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New("AC123", "secret", "+15550100", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := New("", "tok", "+1"); err == nil {
		t.Error("missing SID: want error")
	}
	if _, err := New("AC1", "", "+1"); err == nil {
		t.Error("missing token: want error")
	}
	if _, err := New("AC1", "tok", ""); err == nil {
		t.Error("missing from number: want error")
	}
}

func TestBlocked(t *testing.T) {
	t.Parallel()

	for _, n := range []string{"911", "112", "999", "+911", " 911 "} {
		if !Blocked(n) {
			t.Errorf("Blocked(%q) = false, want true", n)
		}
	}
	for _, n := range []string{"+15550101", "9111", "+919110000000"} {
		if Blocked(n) {
			t.Errorf("Blocked(%q) = true, want false", n)
		}
	}
}

func TestMakeCall_PostsFormWithBasicAuth(t *testing.T) {
	t.Parallel()

	var gotPath, gotTo, gotFrom, gotURL string
	var gotUser, gotPass string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotTo = r.PostForm.Get("To")
		gotFrom = r.PostForm.Get("From")
		gotURL = r.PostForm.Get("Url")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA0001"}`))
	}))

	sid, err := c.MakeCall(context.Background(), "+15550123", "https://bridge.example.com/incoming-call")
	if err != nil {
		t.Fatalf("MakeCall: %v", err)
	}
	if sid != "CA0001" {
		t.Errorf("sid = %q, want CA0001", sid)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Calls.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "AC123" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	if gotTo != "+15550123" || gotFrom != "+15550100" {
		t.Errorf("To/From = %q/%q", gotTo, gotFrom)
	}
	if gotURL != "https://bridge.example.com/incoming-call" {
		t.Errorf("Url = %q", gotURL)
	}
}

func TestMakeCall_BlockedNumberNeverHitsAPI(t *testing.T) {
	t.Parallel()

	called := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.Write([]byte(`{"sid":"CA0001"}`))
	}))

	_, err := c.MakeCall(context.Background(), "911", "https://example.com/cb")
	if !errors.Is(err, ErrBlockedNumber) {
		t.Fatalf("MakeCall(911) error = %v, want ErrBlockedNumber", err)
	}
	if called {
		t.Error("API was called for a blocked number")
	}
}

func TestSendSMS(t *testing.T) {
	t.Parallel()

	var gotPath, gotBody string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM0001"}`))
	}))

	sid, err := c.SendSMS(context.Background(), "+15550123", "your order shipped")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if sid != "SM0001" {
		t.Errorf("sid = %q, want SM0001", sid)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != "your order shipped" {
		t.Errorf("Body = %q", gotBody)
	}

	if _, err := c.SendSMS(context.Background(), "112", "hi"); !errors.Is(err, ErrBlockedNumber) {
		t.Errorf("SendSMS(112) error = %v, want ErrBlockedNumber", err)
	}
}

func TestPost_SurfacesTwilioError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))

	_, err := c.MakeCall(context.Background(), "+15550123", "https://example.com/cb")
	if err == nil || !strings.Contains(err.Error(), "Invalid 'To' Phone Number") {
		t.Fatalf("error = %v, want Twilio message surfaced", err)
	}
	if !strings.Contains(err.Error(), "21211") {
		t.Errorf("error = %v, want Twilio error code included", err)
	}
}

func TestVoiceStreamTwiML(t *testing.T) {
	t.Parallel()

	out, err := VoiceStreamTwiML("Connected to Rio. Please start speaking.", "wss://bridge.example.com/media-stream")
	if err != nil {
		t.Fatalf("VoiceStreamTwiML: %v", err)
	}
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<Say>Connected to Rio. Please start speaking.</Say>`,
		`<Connect><Stream url="wss://bridge.example.com/media-stream"></Stream></Connect>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("twiml missing %q:\n%s", want, out)
		}
	}
}

func TestSMSReplyTwiML_EscapesBody(t *testing.T) {
	t.Parallel()

	out, err := SMSReplyTwiML(`Thanks for your message: "<hello>"`)
	if err != nil {
		t.Fatalf("SMSReplyTwiML: %v", err)
	}
	if !strings.Contains(out, "&lt;hello&gt;") {
		t.Errorf("body not XML-escaped:\n%s", out)
	}
	if !strings.Contains(out, "<Message>") {
		t.Errorf("missing Message element:\n%s", out)
	}
}
