package mailbox

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	auth := &AuthError{Address: "user@gmail.com", Err: errors.New("NO LOGIN failed")}
	wrapped := fmt.Errorf("verifying account: %w", auth)

	if !IsAuthError(auth) || !IsAuthError(wrapped) {
		t.Fatalf("auth error not detected through the chain")
	}
	if IsAuthError(errors.New("plain")) {
		t.Fatalf("plain error misdetected as auth")
	}

	notFound := &FolderNotFoundError{Folder: "Archive", Available: []string{"INBOX", "Sent"}}
	if !IsFolderNotFound(fmt.Errorf("selecting: %w", notFound)) {
		t.Fatalf("folder error not detected through the chain")
	}

	conn := &ConnectionError{Host: "imap.gmail.com", Err: errors.New("dial tcp: timeout")}
	if !IsConnectionError(fmt.Errorf("opening session: %w", conn)) {
		t.Fatalf("connection error not detected through the chain")
	}
}

func TestGuidance(t *testing.T) {
	if got := Guidance(nil); got != "" {
		t.Fatalf("nil error guidance got %q", got)
	}

	auth := &AuthError{Address: "user@gmail.com", Err: errors.New("NO LOGIN failed")}
	if got := Guidance(auth); !strings.Contains(got, "app password") {
		t.Fatalf("auth guidance got %q", got)
	}
	if got := Guidance(auth); strings.Contains(got, "NO LOGIN") {
		t.Fatalf("auth guidance must not leak protocol detail: %q", got)
	}

	notFound := &FolderNotFoundError{Folder: "Archive", Available: []string{"INBOX", "Sent"}}
	got := Guidance(notFound)
	if !strings.Contains(got, "Archive") || !strings.Contains(got, "INBOX") {
		t.Fatalf("folder guidance got %q", got)
	}

	conn := &ConnectionError{Host: "imap.gmail.com", Err: errors.New("dial tcp: timeout")}
	if got := Guidance(conn); !strings.Contains(got, "mail server") {
		t.Fatalf("connection guidance got %q", got)
	}

	plain := errors.New("something odd")
	if got := Guidance(plain); got != "something odd" {
		t.Fatalf("fallback guidance got %q", got)
	}
}
