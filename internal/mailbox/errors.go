package mailbox

import (
	"errors"
	"fmt"
)

// AuthError indicates the server rejected the credentials.
type AuthError struct {
	Address string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Address, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// FolderNotFoundError indicates the requested folder does not exist on the
// server. Available lists the folders the server reported, so the caller
// can offer alternatives.
type FolderNotFoundError struct {
	Folder    string
	Available []string
}

func (e *FolderNotFoundError) Error() string {
	return fmt.Sprintf("folder %q not found", e.Folder)
}

// IsFolderNotFound reports whether err is a FolderNotFoundError.
func IsFolderNotFound(err error) bool {
	var notFound *FolderNotFoundError
	return errors.As(err, &notFound)
}

// ConnectionError indicates a transient transport failure: DNS, TCP, TLS,
// or a dropped connection.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// Guidance translates an error into a short, non-technical message for the
// dashboard. Unrecognized errors fall back to the raw error string.
func Guidance(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuthError(err):
		return "Sign-in failed. Check the address and app password (regular account passwords are usually rejected)."
	case IsFolderNotFound(err):
		var notFound *FolderNotFoundError
		errors.As(err, &notFound)
		if len(notFound.Available) > 0 {
			return fmt.Sprintf("Folder %q does not exist. Available: %v", notFound.Folder, notFound.Available)
		}
		return fmt.Sprintf("Folder %q does not exist on the server.", notFound.Folder)
	case IsConnectionError(err):
		return "Could not reach the mail server. Check the network connection and any configured host override."
	default:
		return err.Error()
	}
}
