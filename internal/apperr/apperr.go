// Package apperr defines the failure kinds that cross the boundary between
// the authorization layer and the route layer.
//
// The taxonomy is deliberately small, and the distinction between NotFound
// and Forbidden is load-bearing:
//
//   - NotFound covers "does not exist", "exists in another tenant", and
//     "exists but you may not see it". Collapsing these is what prevents
//     the error channel from becoming an oracle for enumerating private
//     data — a caller probing channel IDs learns nothing from a 404.
//   - Forbidden is used only once the caller has legitimately been shown
//     that the target exists (it is visible in their tenant) and a specific
//     action is being denied on top of that.
//
// Route handlers map Kind to an HTTP status mechanically and must never
// upgrade a NotFound into a Forbidden or vice versa.
package apperr

import (
	"errors"
)

// Kind classifies a failure for the route layer's status mapping.
type Kind int

const (
	// KindUnknown is the zero value; Classify maps it to an internal error.
	KindUnknown Kind = iota

	// KindTenantRequired: no effective tenant could be derived from the
	// request. Raised by context extraction before any guard runs.
	KindTenantRequired

	// KindNotFound: absent, cross-tenant, or present-but-invisible.
	// Callers must not attempt to distinguish those sub-cases.
	KindNotFound

	// KindForbidden: the target is known to exist and be visible, but the
	// specific action is denied.
	KindForbidden

	// KindBadRequest: a domain invariant violation unrelated to identity
	// (reply to a reply, react to a deleted message, pin a reply).
	KindBadRequest

	// KindConflict: the operation collides with current state (already
	// pinned, removing the last channel member).
	KindConflict
)

// Error is the one error type this layer raises. Msg is safe to show to
// the caller; anything more specific belongs in the audit log.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func TenantRequired(msg string) *Error { return &Error{Kind: KindTenantRequired, Msg: msg} }
func NotFound(msg string) *Error       { return &Error{Kind: KindNotFound, Msg: msg} }
func Forbidden(msg string) *Error      { return &Error{Kind: KindForbidden, Msg: msg} }
func BadRequest(msg string) *Error     { return &Error{Kind: KindBadRequest, Msg: msg} }
func Conflict(msg string) *Error       { return &Error{Kind: KindConflict, Msg: msg} }

// Classify returns the Kind of err, unwrapping as needed. Errors that are
// not *Error classify as KindUnknown — the route layer treats those as
// internal failures, never as a guard decision.
func Classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool  { return Classify(err) == KindNotFound }
func IsForbidden(err error) bool { return Classify(err) == KindForbidden }
func IsConflict(err error) bool  { return Classify(err) == KindConflict }
