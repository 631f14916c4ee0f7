// Package errs contains sentinel errors shared by the controller, the
// collaborators and the HTTP edge.
package errs

import "errors"

var (
	// ErrValidation indicates missing required input; no remote call was made.
	ErrValidation = errors.New("please fill all fields")

	// ErrNoSession indicates an operation that needs a signed-in user.
	ErrNoSession = errors.New("not signed in")

	// ErrUnauthorized indicates the data collaborator rejected the actor.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStateMismatch indicates an OAuth callback whose state is unknown,
	// expired or bound to another browser.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrSignInDenied indicates the provider redirected back without a code.
	ErrSignInDenied = errors.New("sign-in was not completed")

	// ErrUnknownProvider indicates a sign-in request for a provider that is
	// not in the catalogue.
	ErrUnknownProvider = errors.New("unknown oauth provider")
)
