package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-signup/pkg/signup"
	"github.com/goliatone/go-signup/pkg/testsupport"
)

func newTestHandler(t *testing.T, sub signup.Submitter, fns ...OptionFn) *Handler {
	t.Helper()
	h, err := New(func() *signup.Controller { return signup.New(sub) }, fns...)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func do(t *testing.T, h http.Handler, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultOptions().CookieName {
			return c
		}
	}
	t.Fatalf("expected session cookie")
	return nil
}

func decodeAPI(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return resp
}

func validBody() string {
	return `{"email":"john@x.com","password":"ab","confirmPassword":"ab","agreeToTerms":true}`
}

func TestPage_RendersEmptyForm(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/signup", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="email"`, `name="password"`, `name="confirmPassword"`, `name="agreeToTerms"`, `placeholder="john@gmail.com"`, "Submit"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
	if strings.Contains(body, "required field") {
		t.Fatalf("untouched errors must stay hidden")
	}
	_ = sessionCookie(t, rec)
}

func TestPage_SubmitInvalidShowsErrors(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))
	form := url.Values{"email": {"john@x.com"}, "password": {"a"}, "confirmPassword": {"a"}}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Seems a bit short", "Must agree to terms to continue", `value="john@x.com"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page:\n%s", want, body)
		}
	}
	if strings.Contains(body, `value="a"`) {
		t.Fatalf("passwords must not be echoed back")
	}
}

func TestPage_SubmitTouchesPostedFields(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))
	form := url.Values{"email": {"john@x.com"}, "password": {"ab"}, "confirmPassword": {"ab"}, "agreeToTerms": {"on"}}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	state := decodeAPI(t, do(t, h, httptest.NewRequest(http.MethodGet, "/api/signup", nil), sessionCookie(t, rec))).State
	for _, field := range signup.Fields() {
		if !state.Touched[field] {
			t.Fatalf("%s should be touched after a posted submit", field)
		}
	}
}

func TestHandler_SessionsExpireWithClock(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0),
		WithSessionTTL(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	first := sessionCookie(t, do(t, h, httptest.NewRequest(http.MethodGet, "/signup", nil)))

	now = now.Add(2 * time.Minute)
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/signup", nil), first)
	second := sessionCookie(t, rec)
	if second.Value == first.Value {
		t.Fatalf("expired session cookie should be replaced")
	}
	if removed := h.Sessions().Sweep(); removed != 1 {
		t.Fatalf("expected the expired session to be swept, got %d", removed)
	}
}

func TestPage_SubmitSuccessAndFailure(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))

	post := func(email string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		form := url.Values{
			"email":           {email},
			"password":        {"ab"},
			"confirmPassword": {"ab"},
			"agreeToTerms":    {"on"},
		}
		req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return do(t, h, req, cookies...)
	}

	rec := post(signup.DefaultRejectedEmail)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), signup.DefaultRejectedReason) {
		t.Fatalf("expected general error in page")
	}
	cookie := sessionCookie(t, rec)

	rec = post("john@x.com", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, signup.DefaultRejectedReason) {
		t.Fatalf("general error should be cleared on retry")
	}
	if !strings.Contains(body, `class="summary"`) {
		t.Fatalf("expected success summary")
	}
	if h.Sessions().Len() != 1 {
		t.Fatalf("expected session reuse, got %d sessions", h.Sessions().Len())
	}
}

func TestPage_GeneralErrorIsSanitised(t *testing.T) {
	sub := signup.SubmitterFunc(func(context.Context, signup.SignUpRequest) error {
		return &signup.SubmissionError{Message: `<b>nope</b><script>alert(1)</script>`}
	})
	h := newTestHandler(t, sub)
	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(validBody()))
	rec := do(t, h, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: %d", rec.Code)
	}

	page := do(t, h, httptest.NewRequest(http.MethodGet, "/signup", nil), sessionCookie(t, rec))
	body := page.Body.String()
	if !strings.Contains(body, "<b>nope</b>") {
		t.Fatalf("expected inline markup kept:\n%s", body)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("script must be stripped")
	}
}

func TestPage_ThemeTokensBecomeCSSVars(t *testing.T) {
	cfg := &theme.RendererConfig{
		Theme:   "acme",
		Variant: "dark",
		Tokens:  map[string]string{"brand": "#123456"},
		CSSVars: map[string]string{"surface": "#000"},
	}
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0), WithTheme(cfg))
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/signup", nil))
	body := rec.Body.String()
	for _, want := range []string{"--signup-brand: #123456;", "--surface: #000;", `data-theme="acme"`, `data-variant="dark"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
}

func TestAPI_SubmitOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantOutcome signup.Outcome
		wantGeneral string
	}{
		{name: "success", body: validBody(), wantStatus: http.StatusOK, wantOutcome: signup.OutcomeSucceeded},
		{
			name:        "rejected",
			body:        `{"email":"A@a.com","password":"ab","confirmPassword":"ab","agreeToTerms":true}`,
			wantStatus:  http.StatusBadGateway,
			wantOutcome: signup.OutcomeFailed,
			wantGeneral: signup.DefaultRejectedReason,
		},
		{
			name:        "terms not accepted",
			body:        `{"email":"john@x.com","password":"ab","confirmPassword":"ab","agreeToTerms":false}`,
			wantStatus:  http.StatusUnprocessableEntity,
			wantOutcome: signup.OutcomeInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, signup.NewSimulatedSubmitter(0))
			rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status: want %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			resp := decodeAPI(t, rec)
			if resp.Outcome != tt.wantOutcome {
				t.Fatalf("outcome: want %s, got %s", tt.wantOutcome, resp.Outcome)
			}
			if resp.State.GeneralError != tt.wantGeneral {
				t.Fatalf("general error: want %q, got %q", tt.wantGeneral, resp.State.GeneralError)
			}
			if resp.State.IsSubmitting {
				t.Fatalf("isSubmitting must be false after completion")
			}
		})
	}
}

func TestAPI_RejectsMalformedBody(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"nickname":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestAPI_SetField(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/signup/fields/password", strings.NewReader(`{"value":"a"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	resp := decodeAPI(t, rec)
	if !resp.State.Touched[signup.FieldPassword] {
		t.Fatalf("field should be touched")
	}
	if got := resp.State.VisibleError(signup.FieldPassword); got != "Seems a bit short" {
		t.Fatalf("visible error: got %q", got)
	}
	cookie := sessionCookie(t, rec)

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/signup/fields/agreeToTerms", strings.NewReader(`{"value":"yes"}`)), cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong type status: %d", rec.Code)
	}
	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/signup/fields/nickname", strings.NewReader(`{"value":"x"}`)), cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown field status: %d", rec.Code)
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/signup", nil), cookie)
	resp = decodeAPI(t, rec)
	if resp.State.Values.Password != "a" {
		t.Fatalf("state should persist across requests, got %+v", resp.State.Values)
	}

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/signup", nil), cookie)
	resp = decodeAPI(t, rec)
	if diff := cmp.Diff(signup.Values{}, resp.State.Values); diff != "" {
		t.Fatalf("values after reset (-want +got):\n%s", diff)
	}
}

func TestAPI_ConcurrentSubmitIsRejected(t *testing.T) {
	sub := testsupport.NewGatedSubmitter()
	h := newTestHandler(t, sub)

	// establish a session first so both submits share it
	cookie := sessionCookie(t, do(t, h, httptest.NewRequest(http.MethodGet, "/api/signup", nil)))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(validBody()))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		done <- rec
	}()
	<-sub.Started()

	other := `{"email":"other@x.com","password":"cd","confirmPassword":"cd","agreeToTerms":true}`
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(other)), cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second submit status: %d", rec.Code)
	}
	resp := decodeAPI(t, rec)
	if resp.Outcome != signup.OutcomeBusy {
		t.Fatalf("expected busy outcome, got %s", resp.Outcome)
	}
	if diff := cmp.Diff(testsupport.ValidValues(), resp.State.Values); diff != "" {
		t.Fatalf("busy session was mutated (-want +got):\n%s", diff)
	}

	sub.Release()
	first := <-done
	if first.Code != http.StatusOK {
		t.Fatalf("first submit status: %d", first.Code)
	}
	want := []signup.SignUpRequest{{Email: testsupport.ValidValues().Email}}
	if diff := cmp.Diff(want, sub.Requests()); diff != "" {
		t.Fatalf("submitter calls (-want +got):\n%s", diff)
	}
}

func TestOpenAPI_Served(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"/api/signup/fields/{field}"`)) {
		t.Fatalf("expected field route in document")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))
	rec := do(t, h, httptest.NewRequest(http.MethodPut, "/signup", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := NewSessionStore(func() *signup.Controller { return signup.New(signup.NewSimulatedSubmitter(0)) }, time.Minute, clock)

	first, id := store.Acquire("")
	again, sameID := store.Acquire(id)
	if first != again || id != sameID {
		t.Fatalf("expected session reuse")
	}
	if _, other := store.Acquire("not-a-uuid"); other == id {
		t.Fatalf("malformed ids must not match")
	}

	now = now.Add(2 * time.Minute)
	if removed := store.Sweep(); removed != 2 {
		t.Fatalf("expected 2 evictions, got %d", removed)
	}
	if _, fresh := store.Acquire(id); fresh == id {
		t.Fatalf("expired session must not be revived")
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	h := newTestHandler(t, signup.NewSimulatedSubmitter(0))
	tests := []struct {
		err  error
		want int
	}{
		{err: StatusError{Code: http.StatusTeapot}, want: http.StatusTeapot},
		{err: signup.ErrValueType, want: http.StatusBadRequest},
		{err: signup.ErrSubmitInFlight, want: http.StatusConflict},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.writeError(rec, tt.err)
		if rec.Code != tt.want {
			t.Fatalf("%v: want %d, got %d", tt.err, tt.want, rec.Code)
		}
	}
}

func TestNew_RequiresFactory(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error")
	}
}
