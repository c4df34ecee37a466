package model

import "time"

// Sentinel sender values produced by header parsing. Records carrying a
// sentinel are kept for bookkeeping but excluded from sender aggregation.
const (
	SenderUnknown = "unknown"
	SenderError   = "error"
)

// DeleteMode selects what a bulk removal does with matching messages.
type DeleteMode string

const (
	// DeleteTrash moves messages to the provider's trash folder.
	DeleteTrash DeleteMode = "trash"

	// DeletePermanent flags messages \Deleted and expunges them.
	DeletePermanent DeleteMode = "permanent"
)

// FetchMode selects which header fields a scan requests per message.
type FetchMode string

const (
	// FetchFast requests only the From field.
	FetchFast FetchMode = "fast"

	// FetchFull additionally requests Subject, Date, List-Unsubscribe,
	// and the message size.
	FetchFull FetchMode = "full"
)

// Credentials identifies one IMAP account session. The secret is held in
// process memory only; it is never written to the config file or logged.
type Credentials struct {
	Address string
	Secret  string
	Folder  string
}

// HeaderRecord is the parsed result for a single message header. It is
// immutable once created and lives for the duration of one scan snapshot.
type HeaderRecord struct {
	UID         uint32
	Sender      string
	DisplayName string
	Subject     string
	Date        time.Time
	SizeBytes   int64

	// UnsubscribeHTTP and UnsubscribeMailto hold the first URI of each
	// kind found in the List-Unsubscribe field, or "" if absent.
	UnsubscribeHTTP   string
	UnsubscribeMailto string
}

// HasSender reports whether the record carries a real sender address
// rather than a parse sentinel.
func (r HeaderRecord) HasSender() bool {
	return r.Sender != "" && r.Sender != SenderUnknown && r.Sender != SenderError
}
