package openapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-signup/pkg/signup"
)

const (
	Title   = "Sign-up API"
	Version = "1.0.0"
)

// Paths locates the JSON API routes described by the document.
type Paths struct {
	API string
}

// Document builds and validates the OpenAPI description of the JSON API.
func Document(paths Paths) (*openapi3.T, error) {
	api := strings.TrimRight(strings.TrimSpace(paths.API), "/")
	if api == "" {
		api = "/api/signup"
	}
	if !strings.HasPrefix(api, "/") {
		api = "/" + api
	}

	state := stateSchema()
	response := func(desc string) *openapi3.Response {
		return openapi3.NewResponse().WithDescription(desc).WithJSONSchema(responseSchema(state))
	}
	errResponse := func(desc string) *openapi3.Response {
		return openapi3.NewResponse().WithDescription(desc).WithJSONSchema(
			openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema()),
		)
	}

	get := openapi3.NewOperation()
	get.OperationID = "getSignUpState"
	get.Summary = "Current form state for the session"
	get.AddResponse(http.StatusOK, response("Form state"))

	submit := openapi3.NewOperation()
	submit.OperationID = "submitSignUp"
	submit.Summary = "Set every field and submit the form"
	submit.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(ValuesSchema(signup.DefaultRuleTable())),
	}
	submit.AddResponse(http.StatusOK, response("Submission succeeded"))
	submit.AddResponse(http.StatusBadRequest, errResponse("Malformed body"))
	submit.AddResponse(http.StatusConflict, response("A submission is already in flight"))
	submit.AddResponse(http.StatusUnprocessableEntity, response("Validation failed"))
	submit.AddResponse(http.StatusBadGateway, response("Submission rejected"))

	reset := openapi3.NewOperation()
	reset.OperationID = "resetSignUp"
	reset.Summary = "Return the form to its initial values"
	reset.AddResponse(http.StatusOK, response("Form reset"))
	reset.AddResponse(http.StatusConflict, errResponse("A submission is in flight"))

	fieldNames := make([]any, 0, len(signup.Fields()))
	for _, field := range signup.Fields() {
		fieldNames = append(fieldNames, string(field))
	}
	setField := openapi3.NewOperation()
	setField.OperationID = "setSignUpField"
	setField.Summary = "Set and touch a single field"
	setField.Parameters = openapi3.Parameters{
		{Value: openapi3.NewPathParameter("field").WithSchema(openapi3.NewStringSchema().WithEnum(fieldNames...))},
	}
	setField.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(
			openapi3.NewObjectSchema().WithProperty("value", &openapi3.Schema{}),
		),
	}
	setField.AddResponse(http.StatusOK, response("Field updated"))
	setField.AddResponse(http.StatusBadRequest, errResponse("Value has the wrong type"))
	setField.AddResponse(http.StatusNotFound, errResponse("Unknown field"))

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   Title,
			Version: Version,
		},
		Paths: openapi3.NewPaths(),
	}
	doc.Paths.Set(api, &openapi3.PathItem{
		Get:    get,
		Post:   submit,
		Delete: reset,
	})
	doc.Paths.Set(api+"/fields/{field}", &openapi3.PathItem{
		Post: setField,
	})

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

// ValuesSchema describes the form values. Only property types are enforced:
// the rule table is listed in each property's description and under the
// x-signup-rules extension, so any well-typed body reaches the server and
// rule failures come back as 422 responses.
func ValuesSchema(rules []signup.Rule) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	props := make(map[signup.Field]*openapi3.Schema, len(signup.Fields()))
	for _, spec := range signup.FieldSpecs() {
		var prop *openapi3.Schema
		if spec.Kind == signup.FieldKindBoolean {
			prop = openapi3.NewBoolSchema()
		} else {
			prop = openapi3.NewStringSchema()
		}
		prop.Title = spec.Label
		props[spec.Name] = prop
		schema.WithProperty(string(spec.Name), prop)
	}

	perField := make(map[signup.Field][]signup.Rule)
	for _, rule := range rules {
		prop, ok := props[rule.Field]
		if !ok {
			continue
		}
		appendDescription(prop, describeRule(rule))
		perField[rule.Field] = append(perField[rule.Field], rule)
	}
	for field, fieldRules := range perField {
		prop := props[field]
		if prop.Extensions == nil {
			prop.Extensions = make(map[string]any)
		}
		prop.Extensions[RulesExtension] = fieldRules
	}
	return schema
}

// RulesExtension is the schema extension carrying a field's rule table.
const RulesExtension = "x-signup-rules"

func describeRule(rule signup.Rule) string {
	switch rule.Kind {
	case signup.RuleRequired:
		return "Required."
	case signup.RuleMinLength:
		return "At least " + rule.Params["value"] + " characters."
	case signup.RuleMaxLength:
		return "At most " + rule.Params["value"] + " characters."
	case signup.RulePattern:
		return "Must match " + rule.Params["pattern"] + "."
	case signup.RuleEqualsField:
		return "Must equal " + rule.Params["field"] + "."
	case signup.RuleMustBeTrue:
		return "Must be true."
	default:
		return rule.Message
	}
}

func stateSchema() *openapi3.Schema {
	flags := openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewBoolSchema())
	return openapi3.NewObjectSchema().
		WithProperty("values", ValuesSchema(nil)).
		WithProperty("touched", flags).
		WithProperty("dirty", flags).
		WithProperty("errors", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithProperty("isSubmitting", openapi3.NewBoolSchema()).
		WithProperty("generalError", openapi3.NewStringSchema()).
		WithProperty("submitted", openapi3.NewBoolSchema()).
		WithProperty("attempts", openapi3.NewIntegerSchema())
}

func responseSchema(state *openapi3.Schema) *openapi3.Schema {
	outcomes := []any{
		string(signup.OutcomeInvalid),
		string(signup.OutcomeBusy),
		string(signup.OutcomeSucceeded),
		string(signup.OutcomeFailed),
	}
	return openapi3.NewObjectSchema().
		WithProperty("outcome", openapi3.NewStringSchema().WithEnum(outcomes...)).
		WithProperty("attemptId", openapi3.NewStringSchema()).
		WithProperty("state", state)
}

func appendDescription(schema *openapi3.Schema, text string) {
	if schema.Description == "" {
		schema.Description = text
		return
	}
	schema.Description += " " + text
}
