// Package signup implements the sign-up form controller: field values,
// touched flags, whole-form validation and a single in-flight submission
// against a Submitter collaborator. Validation is an explicit rule table
// (see DefaultRules) interpreted by RuleSet.Validate; the required rule of a
// field is listed first so it is the only message surfaced for empty input.
// Presentation layers never share the controller's maps: every mutation
// publishes an immutable Snapshot to subscribers, and Controller.Snapshot
// returns a fresh copy on demand.
package signup
