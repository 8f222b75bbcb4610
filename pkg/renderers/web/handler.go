package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-signup/pkg/openapi"
	"github.com/goliatone/go-signup/pkg/signup"
)

// HTTPError is implemented by errors that carry a status code.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError pairs an error with the HTTP status it should produce.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// Handler serves the HTML form, the JSON API and its OpenAPI description.
type Handler struct {
	opts     Options
	sessions *SessionStore
	router   *mux.Router
	spec     []byte
}

// New builds a handler whose sessions get controllers from factory.
func New(factory ControllerFactory, fns ...OptionFn) (*Handler, error) {
	if factory == nil {
		return nil, errors.New("web: controller factory is required")
	}
	opts := NewOptions(fns...)

	doc, err := openapi.Document(openapi.Paths{API: opts.APIPath})
	if err != nil {
		return nil, fmt.Errorf("web: openapi: %w", err)
	}
	spec, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("web: openapi: %w", err)
	}

	h := &Handler{
		opts:     opts,
		sessions: NewSessionStore(factory, opts.SessionTTL, opts.Now),
		spec:     spec,
	}
	h.router = h.routes()
	return h, nil
}

// Sessions exposes the session store (for sweeping from the caller's
// lifecycle).
func (h *Handler) Sessions() *SessionStore {
	return h.sessions
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(h.opts.PagePath, h.showPage).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(h.opts.PagePath, h.submitPage).Methods(http.MethodPost)
	r.HandleFunc(h.opts.APIPath, h.getState).Methods(http.MethodGet)
	r.HandleFunc(h.opts.APIPath, h.submitAPI).Methods(http.MethodPost)
	r.HandleFunc(h.opts.APIPath, h.resetAPI).Methods(http.MethodDelete)
	r.HandleFunc(h.opts.APIPath+"/fields/{field}", h.setField).Methods(http.MethodPost)
	r.HandleFunc(h.opts.OpenAPIPath, h.openAPI).Methods(http.MethodGet)
	return r
}

func (h *Handler) controllerFor(w http.ResponseWriter, r *http.Request) *signup.Controller {
	var current string
	if cookie, err := r.Cookie(h.opts.CookieName); err == nil {
		current = cookie.Value
	}
	ctrl, id := h.sessions.Acquire(current)
	if id != current {
		http.SetCookie(w, &http.Cookie{
			Name:     h.opts.CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.opts.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return ctrl
}

func (h *Handler) showPage(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controllerFor(w, r)
	h.writePage(w, r, http.StatusOK, ctrl.Snapshot(), nil)
}

func (h *Handler) submitPage(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controllerFor(w, r)
	if err := r.ParseForm(); err != nil {
		h.writeError(w, StatusError{Code: http.StatusBadRequest, Err: err})
		return
	}

	res, err := ctrl.SubmitValues(r.Context(), valuesFromForm(r))
	h.logSubmit(r.Context(), res, err)
	h.writePage(w, r, statusFor(res.Outcome), res.Snapshot, &res)
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, status int, snap signup.Snapshot, res *signup.Result) {
	data := pageData{
		Action:   h.opts.PagePath,
		Snapshot: snap,
		Theme:    h.opts.Theme,
	}
	if res != nil && res.Outcome == signup.OutcomeSucceeded {
		summary, err := json.MarshalIndent(res.Values.Redacted(), "", "  ")
		if err == nil {
			data.Summary = string(summary)
		}
	}

	body, err := renderPage(data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

type apiResponse struct {
	Outcome   signup.Outcome  `json:"outcome,omitempty"`
	AttemptID string          `json:"attemptId,omitempty"`
	State     signup.Snapshot `json:"state"`
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controllerFor(w, r)
	writeJSON(w, http.StatusOK, apiResponse{State: ctrl.Snapshot()})
}

func (h *Handler) submitAPI(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controllerFor(w, r)

	var values signup.Values
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&values); err != nil {
		h.writeError(w, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("decode body: %w", err)})
		return
	}

	res, err := ctrl.SubmitValues(r.Context(), values)
	h.logSubmit(r.Context(), res, err)
	writeJSON(w, statusFor(res.Outcome), apiResponse{
		Outcome:   res.Outcome,
		AttemptID: res.AttemptID,
		State:     res.Snapshot,
	})
}

func (h *Handler) resetAPI(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controllerFor(w, r)
	if err := ctrl.Reset(); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{State: ctrl.Snapshot()})
}

type fieldRequest struct {
	Value any `json:"value"`
}

func (h *Handler) setField(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controllerFor(w, r)

	field, err := signup.ParseField(mux.Vars(r)["field"])
	if err != nil {
		h.writeError(w, StatusError{Code: http.StatusNotFound, Err: err})
		return
	}
	var req fieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("decode body: %w", err)})
		return
	}
	if err := ctrl.SetValue(field, req.Value); err != nil {
		h.writeError(w, err)
		return
	}
	if err := ctrl.MarkTouched(field); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{State: ctrl.Snapshot()})
}

func (h *Handler) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.spec)
}

func (h *Handler) logSubmit(ctx context.Context, res signup.Result, err error) {
	attrs := []slog.Attr{slog.String("outcome", string(res.Outcome))}
	if res.AttemptID != "" {
		attrs = append(attrs, slog.String("attempt", res.AttemptID))
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.opts.Logger.LogAttrs(ctx, level, "web: submit", attrs...)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.StatusCode()
	case errors.Is(err, signup.ErrUnknownField), errors.Is(err, signup.ErrValueType):
		code = http.StatusBadRequest
	case errors.Is(err, signup.ErrSubmitInFlight):
		code = http.StatusConflict
	}
	if code >= http.StatusInternalServerError {
		h.opts.Logger.Error("web: request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func statusFor(outcome signup.Outcome) int {
	switch outcome {
	case signup.OutcomeSucceeded:
		return http.StatusOK
	case signup.OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case signup.OutcomeBusy:
		return http.StatusConflict
	case signup.OutcomeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func valuesFromForm(r *http.Request) signup.Values {
	return signup.Values{
		Email:           r.PostForm.Get(string(signup.FieldEmail)),
		Password:        r.PostForm.Get(string(signup.FieldPassword)),
		ConfirmPassword: r.PostForm.Get(string(signup.FieldConfirmPassword)),
		AgreeToTerms:    checkboxValue(r.PostForm.Get(string(signup.FieldAgreeToTerms))),
	}
}

// checkboxValue maps the browser encodings of a checked box to true; an
// unchecked box is absent from the form.
func checkboxValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}
