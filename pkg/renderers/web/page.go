package web

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-signup/pkg/signup"
)

const pageTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sign up</title>
<style>
:root { {{ css_vars }} }
body { font-family: system-ui, sans-serif; margin: 3rem auto; max-width: 28rem; }
.field { margin: 0.25rem 1.25rem; }
.field input[type=email], .field input[type=password] { border: 1px solid #909090; padding: 0.6rem; width: 100%; }
.field.invalid input { border-color: var(--signup-error, red); }
.error { color: var(--signup-error, red); min-height: 1.2em; }
button { background: var(--signup-brand, #1d4ed8); color: #fff; border: 0; padding: 0.6rem 1.2rem; }
</style>
</head>
<body data-theme="{{ theme_name }}" data-variant="{{ theme_variant }}">
<form method="post" action="{{ action }}" novalidate>
{% for field in fields %}
  <div class="field{% if field.error %} invalid{% endif %}" data-field="{{ field.name }}">
    <label for="{{ field.name }}">{{ field.label }}</label>
    {% if field.boolean %}
    <input type="checkbox" id="{{ field.name }}" name="{{ field.name }}" value="true"{% if field.checked %} checked{% endif %}>
    {% else %}
    <input type="{{ field.input_type }}" id="{{ field.name }}" name="{{ field.name }}" value="{{ field.value }}" placeholder="{{ field.placeholder }}">
    {% endif %}
    <div class="error">{{ field.error }}</div>
  </div>
{% endfor %}
{% if submitting %}
  <p class="busy" role="status">Submitting…</p>
{% else %}
  <div class="field">
    <button type="submit">Submit</button>
    <div class="error general">{{ general_error|safe }}</div>
  </div>
{% endif %}
{% if submitted %}
  <pre class="summary">{{ summary }}</pre>
{% endif %}
</form>
</body>
</html>
`

var (
	compiledPageOnce sync.Once
	compiledPage     *pongo2.Template
	compiledPageErr  error

	messagePolicyOnce sync.Once
	messagePolicy     *bluemonday.Policy
)

func pageTpl() (*pongo2.Template, error) {
	compiledPageOnce.Do(func() {
		compiledPage, compiledPageErr = pongo2.FromString(pageTemplate)
	})
	return compiledPage, compiledPageErr
}

// sanitizeMessage strips everything but inline emphasis from collaborator
// messages so they can be rendered unescaped.
func sanitizeMessage(raw string) string {
	messagePolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "code")
		messagePolicy = policy
	})
	return strings.TrimSpace(messagePolicy.Sanitize(raw))
}

type pageData struct {
	Action   string
	Snapshot signup.Snapshot
	Summary  string
	Theme    *theme.RendererConfig
}

func renderPage(data pageData) ([]byte, error) {
	tpl, err := pageTpl()
	if err != nil {
		return nil, fmt.Errorf("web: compile page: %w", err)
	}

	ctx := pongo2.Context{
		"action":        data.Action,
		"fields":        fieldContexts(data.Snapshot),
		"submitting":    data.Snapshot.IsSubmitting,
		"submitted":     data.Snapshot.Submitted,
		"general_error": sanitizeMessage(data.Snapshot.GeneralError),
		"summary":       data.Summary,
		"css_vars":      cssVars(data.Theme),
	}
	if data.Theme != nil {
		ctx["theme_name"] = data.Theme.Theme
		ctx["theme_variant"] = data.Theme.Variant
	}

	out, err := tpl.ExecuteBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("web: render page: %w", err)
	}
	return out, nil
}

func fieldContexts(snap signup.Snapshot) []map[string]any {
	specs := signup.FieldSpecs()
	out := make([]map[string]any, 0, len(specs))
	for _, spec := range specs {
		value, _ := snap.Values.Get(spec.Name)
		field := map[string]any{
			"name":        string(spec.Name),
			"label":       spec.Label,
			"placeholder": spec.Placeholder,
			"error":       snap.VisibleError(spec.Name),
			"boolean":     spec.Kind == signup.FieldKindBoolean,
			"input_type":  inputType(spec),
		}
		switch v := value.(type) {
		case bool:
			field["checked"] = v
		case string:
			// secrets are never echoed back into the page
			if !spec.Secret {
				field["value"] = v
			}
		}
		out = append(out, field)
	}
	return out
}

func inputType(spec signup.FieldSpec) string {
	switch {
	case spec.Secret:
		return "password"
	case spec.Name == signup.FieldEmail:
		return "email"
	default:
		return "text"
	}
}

// cssVars flattens theme tokens and explicit CSS variables into a
// declaration list. Tokens are exposed as --signup-<name>.
func cssVars(cfg *theme.RendererConfig) string {
	if cfg == nil {
		return ""
	}
	vars := make(map[string]string, len(cfg.Tokens)+len(cfg.CSSVars))
	for name, value := range cfg.Tokens {
		vars["--signup-"+strings.TrimSpace(name)] = value
	}
	for name, value := range cfg.CSSVars {
		key := strings.TrimSpace(name)
		if !strings.HasPrefix(key, "--") {
			key = "--" + key
		}
		vars[key] = value
	}

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := strings.TrimSpace(vars[key])
		if value == "" || strings.ContainsAny(value, ";{}<>") {
			continue
		}
		parts = append(parts, key+": "+value+";")
	}
	return strings.Join(parts, " ")
}
