package apperrors

import "errors"

var (
	// ErrMissingCredentials means neither username/password, a personal
	// access token pair, nor a connected-app key set was configured.
	ErrMissingCredentials = errors.New("either username/password, token_name/token_value or a connected app must be set")

	// ErrSignInRejected means the remote server refused the sign-in request.
	ErrSignInRejected = errors.New("sign-in rejected by server")

	// ErrNotSignedIn means an authenticated call was attempted before signing in.
	ErrNotSignedIn = errors.New("not signed in")

	ErrNotFound = errors.New("not found")
)
