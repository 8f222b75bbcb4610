package signup

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

const (
	RuleRequired    = "required"
	RulePattern     = "pattern"
	RuleMinLength   = "minLength"
	RuleMaxLength   = "maxLength"
	RuleEqualsField = "equalsField"
	RuleMustBeTrue  = "mustBeTrue"
)

// EmailPattern is the address syntax accepted for the email field (the
// WHATWG "valid e-mail address" production).
const EmailPattern = `^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`

const (
	PasswordMinLength = 2
	PasswordMaxLength = 10
)

// Rule is a single validation constraint. Length rules encode their threshold
// in Params["value"], pattern rules keep the expression in Params["pattern"]
// and equalsField names the other field in Params["field"].
type Rule struct {
	Field   Field             `json:"field"`
	Kind    string            `json:"kind"`
	Params  map[string]string `json:"params,omitempty"`
	Message string            `json:"message"`
}

type compiledRule struct {
	Rule
	pattern *regexp.Regexp
	length  int
	other   Field
}

// RuleSet is a compiled, ordered rule table. Rules are evaluated in order and
// the first failing rule of a field is the only message reported for it.
type RuleSet struct {
	rules []compiledRule
}

// NewRuleSet compiles rules, rejecting unknown kinds, unknown fields and
// malformed parameters.
func NewRuleSet(rules ...Rule) (RuleSet, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for idx, rule := range rules {
		c, err := compileRule(rule)
		if err != nil {
			return RuleSet{}, fmt.Errorf("signup: rule %d (%s/%s): %w", idx, rule.Field, rule.Kind, err)
		}
		compiled = append(compiled, c)
	}
	return RuleSet{rules: compiled}, nil
}

// MustRuleSet is NewRuleSet that panics on error. Intended for static tables.
func MustRuleSet(rules ...Rule) RuleSet {
	set, err := NewRuleSet(rules...)
	if err != nil {
		panic(err)
	}
	return set
}

// DefaultRuleTable returns the sign-up rule table in evaluation order.
func DefaultRuleTable() []Rule {
	return []Rule{
		{Field: FieldEmail, Kind: RuleRequired, Message: "Email is a required field"},
		{Field: FieldEmail, Kind: RulePattern, Params: map[string]string{"pattern": EmailPattern}, Message: "Email must be a valid email"},
		{Field: FieldPassword, Kind: RuleRequired, Message: "Password is a required field"},
		{Field: FieldPassword, Kind: RuleMinLength, Params: map[string]string{"value": strconv.Itoa(PasswordMinLength)}, Message: "Seems a bit short"},
		{Field: FieldPassword, Kind: RuleMaxLength, Params: map[string]string{"value": strconv.Itoa(PasswordMaxLength)}, Message: "Try shorter password"},
		{Field: FieldConfirmPassword, Kind: RuleRequired, Message: "Confirm Password is a required field"},
		{Field: FieldConfirmPassword, Kind: RuleEqualsField, Params: map[string]string{"field": string(FieldPassword)}, Message: "Passwords must match"},
		{Field: FieldAgreeToTerms, Kind: RuleMustBeTrue, Message: "Must agree to terms to continue"},
	}
}

var defaultRules = MustRuleSet(DefaultRuleTable()...)

// DefaultRules returns the compiled sign-up rule table.
func DefaultRules() RuleSet {
	return defaultRules
}

// Validate runs the default rule table over values.
func Validate(values Values) Errors {
	return defaultRules.Validate(values)
}

// Rules returns a copy of the rule table.
func (s RuleSet) Rules() []Rule {
	out := make([]Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule.Rule)
	}
	return out
}

// Validate evaluates the whole table against values. It has no side effects
// and always returns a fresh map (nil when every field is valid).
func (s RuleSet) Validate(values Values) Errors {
	var errs Errors
	for _, rule := range s.rules {
		if errs.Has(rule.Field) {
			continue
		}
		if rule.check(values) {
			continue
		}
		if errs == nil {
			errs = make(Errors)
		}
		errs[rule.Field] = rule.Message
	}
	return errs
}

func compileRule(rule Rule) (compiledRule, error) {
	spec, ok := SpecFor(rule.Field)
	if !ok {
		return compiledRule{}, ErrUnknownField
	}
	c := compiledRule{Rule: rule}
	c.Params = cloneParams(rule.Params)

	switch rule.Kind {
	case RuleRequired:
	case RulePattern:
		if spec.Kind != FieldKindString {
			return compiledRule{}, fmt.Errorf("%w: pattern on non-string field", ErrInvalidRule)
		}
		re, err := regexp.Compile(rule.Params["pattern"])
		if err != nil {
			return compiledRule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		c.pattern = re
	case RuleMinLength, RuleMaxLength:
		if spec.Kind != FieldKindString {
			return compiledRule{}, fmt.Errorf("%w: length on non-string field", ErrInvalidRule)
		}
		n, err := strconv.Atoi(rule.Params["value"])
		if err != nil || n < 0 {
			return compiledRule{}, fmt.Errorf("%w: length %q", ErrInvalidRule, rule.Params["value"])
		}
		c.length = n
	case RuleEqualsField:
		other, ok := SpecFor(Field(rule.Params["field"]))
		if !ok || other.Kind != spec.Kind || spec.Kind != FieldKindString {
			return compiledRule{}, fmt.Errorf("%w: equalsField %q", ErrInvalidRule, rule.Params["field"])
		}
		c.other = other.Name
	case RuleMustBeTrue:
		if spec.Kind != FieldKindBoolean {
			return compiledRule{}, fmt.Errorf("%w: mustBeTrue on non-boolean field", ErrInvalidRule)
		}
	default:
		return compiledRule{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, rule.Kind)
	}
	return c, nil
}

func (r compiledRule) check(values Values) bool {
	switch r.Kind {
	case RuleRequired:
		s, ok := values.stringValue(r.Field)
		if !ok {
			// booleans always carry a value
			return true
		}
		return s != ""
	case RulePattern:
		s, _ := values.stringValue(r.Field)
		return r.pattern.MatchString(s)
	case RuleMinLength:
		s, _ := values.stringValue(r.Field)
		return utf8.RuneCountInString(s) >= r.length
	case RuleMaxLength:
		s, _ := values.stringValue(r.Field)
		return utf8.RuneCountInString(s) <= r.length
	case RuleEqualsField:
		s, _ := values.stringValue(r.Field)
		other, _ := values.stringValue(r.other)
		return s == other
	case RuleMustBeTrue:
		v, _ := values.Get(r.Field)
		b, ok := v.(bool)
		return ok && b
	}
	return true
}

func cloneParams(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
