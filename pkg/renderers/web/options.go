package web

import (
	"log/slog"
	"time"

	theme "github.com/goliatone/go-theme"
)

// Options configures the web handler. Build values with NewOptions so
// defaults are applied.
type Options struct {
	PagePath     string
	APIPath      string
	OpenAPIPath  string
	CookieName   string
	SecureCookie bool
	SessionTTL   time.Duration
	Theme        *theme.RendererConfig
	Logger       *slog.Logger
	Now          func() time.Time
}

// OptionFn mutates Options.
type OptionFn func(*Options)

// DefaultOptions returns the default routes and session settings.
func DefaultOptions() Options {
	return Options{
		PagePath:    "/signup",
		APIPath:     "/api/signup",
		OpenAPIPath: "/openapi.json",
		CookieName:  "signup_session",
		SessionTTL:  30 * time.Minute,
	}
}

// NewOptions applies fns over DefaultOptions and clamps invalid values.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	defaults := DefaultOptions()
	if opts.PagePath == "" {
		opts.PagePath = defaults.PagePath
	}
	if opts.APIPath == "" {
		opts.APIPath = defaults.APIPath
	}
	if opts.OpenAPIPath == "" {
		opts.OpenAPIPath = defaults.OpenAPIPath
	}
	if opts.CookieName == "" {
		opts.CookieName = defaults.CookieName
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaults.SessionTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

func WithPagePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.PagePath = path
	}
}

func WithAPIPath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.APIPath = path
	}
}

func WithOpenAPIPath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.OpenAPIPath = path
	}
}

func WithCookieName(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.CookieName = name
	}
}

// WithSecureCookie marks the session cookie Secure (HTTPS deployments).
func WithSecureCookie(secure bool) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SecureCookie = secure
	}
}

func WithSessionTTL(ttl time.Duration) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SessionTTL = ttl
	}
}

// WithTheme applies theme tokens and CSS variables to the rendered page.
func WithTheme(cfg *theme.RendererConfig) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Theme = cfg
	}
}

func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}

// WithClock overrides the time source used for session expiry.
func WithClock(now func() time.Time) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Now = now
	}
}
