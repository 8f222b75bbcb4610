// Package openapi describes the sign-up JSON API as an OpenAPI 3 document.
// The request body only enforces property types; the signup rule table is
// published alongside each property (description and x-signup-rules) so
// clients can mirror the validation the controller runs.
package openapi
