// Package web serves the sign-up form over HTTP.
//
// The handler exposes two surfaces backed by the same per-session
// controller: a server-rendered HTML page (pongo2) under Options.PagePath
// and a JSON API under Options.APIPath, described by an OpenAPI document at
// Options.OpenAPIPath. Sessions are keyed by a uuid cookie and swept after
// Options.SessionTTL of inactivity.
package web
