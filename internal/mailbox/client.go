package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/asavschaeffer/email-assassin/internal/model"
	"github.com/asavschaeffer/email-assassin/internal/scan"
)

// Connector opens authenticated IMAP sessions against a single provider.
// It holds no connection state itself; every Open returns an independent
// session, so callers can run several sessions in parallel.
type Connector struct {
	provider Provider
	timeout  time.Duration
}

// NewConnector creates a connector for the given provider. timeout bounds
// the TCP/TLS dial of every session; zero selects a 30 second default.
func NewConnector(provider Provider, timeout time.Duration) *Connector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Connector{provider: provider, timeout: timeout}
}

// Provider returns the endpoint this connector dials.
func (c *Connector) Provider() Provider { return c.provider }

// Session is one authenticated IMAP connection with a selected folder.
// A session is owned by a single goroutine; it is not safe for concurrent
// use. Close releases the underlying connection exactly once.
type Session struct {
	client   *imapclient.Client
	provider Provider
	folder   string
	closed   bool
}

// VerifyResult reports the outcome of a credential/folder check.
type VerifyResult struct {
	OK      bool
	Message string

	// Folders lists all folders the server reported, for rendering
	// alternatives when the requested folder is missing.
	Folders []string
}

// connect dials and authenticates, returning a logged-in client. The
// caller owns the client and must log out on every path.
func (c *Connector) connect(ctx context.Context, creds model.Credentials) (*imapclient.Client, error) {
	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", c.provider.Addr(), &tls.Config{
		ServerName: c.provider.Host,
	})
	if err != nil {
		return nil, &ConnectionError{Host: c.provider.Addr(), Err: err}
	}

	if deadline, ok := ctx.Deadline(); ok {
		// Bound login/select on this connection as well; cleared once
		// the session is established.
		_ = conn.SetDeadline(deadline)
	}

	client := imapclient.New(conn, nil)

	if err := client.Login(creds.Address, creds.Secret).Wait(); err != nil {
		_ = client.Close()
		return nil, &AuthError{Address: creds.Address, Err: err}
	}

	_ = conn.SetDeadline(time.Time{})
	return client, nil
}

// Open establishes a session and selects the credentials' folder. The
// connection is released on every failure path.
func (c *Connector) Open(ctx context.Context, creds model.Credentials) (*Session, error) {
	client, err := c.connect(ctx, creds)
	if err != nil {
		return nil, err
	}

	if _, err := client.Select(creds.Folder, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, fmt.Errorf("selecting folder %q: %w", creds.Folder, err)
	}

	return &Session{
		client:   client,
		provider: c.provider,
		folder:   creds.Folder,
	}, nil
}

// Verify checks connectivity, credentials, and the requested folder,
// reporting each failure class distinctly: ConnectionError, AuthError, or
// FolderNotFoundError (with the available folder list).
func (c *Connector) Verify(ctx context.Context, creds model.Credentials) (VerifyResult, error) {
	client, err := c.connect(ctx, creds)
	if err != nil {
		return VerifyResult{}, err
	}
	defer func() {
		_ = client.Logout().Wait()
		_ = client.Close()
	}()

	listed, err := client.List("", "*", nil).Collect()
	if err != nil {
		return VerifyResult{}, fmt.Errorf("listing folders: %w", err)
	}

	folders := make([]string, 0, len(listed))
	found := false
	for _, f := range listed {
		folders = append(folders, f.Mailbox)
		if strings.EqualFold(f.Mailbox, creds.Folder) {
			found = true
		}
	}
	sort.Strings(folders)

	if !found {
		return VerifyResult{Folders: folders}, &FolderNotFoundError{
			Folder:    creds.Folder,
			Available: folders,
		}
	}

	sel, err := client.Select(creds.Folder, nil).Wait()
	if err != nil {
		return VerifyResult{Folders: folders}, fmt.Errorf("selecting folder %q: %w", creds.Folder, err)
	}

	return VerifyResult{
		OK:      true,
		Message: fmt.Sprintf("Connected. %d messages in %s.", sel.NumMessages, creds.Folder),
		Folders: folders,
	}, nil
}

// Close logs out and releases the connection. Safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.client.Logout().Wait()
	if closeErr := s.client.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Folder returns the selected folder name.
func (s *Session) Folder() string { return s.folder }

// ListUIDs returns all message UIDs in the selected folder, ascending,
// with duplicates removed.
func (s *Session) ListUIDs(ctx context.Context) ([]uint32, error) {
	data, err := s.client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching all UIDs: %w", err)
	}

	raw := data.AllUIDs()
	uids := make([]uint32, 0, len(raw))
	for _, uid := range raw {
		uids = append(uids, uint32(uid))
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	deduped := uids[:0]
	var prev uint32
	for i, uid := range uids {
		if i == 0 || uid != prev {
			deduped = append(deduped, uid)
		}
		prev = uid
	}
	return deduped, nil
}

// headerFieldsFor maps a fetch mode to the requested header field set.
func headerFieldsFor(mode model.FetchMode) []string {
	if mode == model.FetchFull {
		return []string{"From", "Subject", "Date", "List-Unsubscribe"}
	}
	return []string{"From"}
}

// FetchHeaders performs a field-restricted header-only fetch for the given
// UIDs and returns the raw header blobs in server response order. A
// per-message collect failure skips that message rather than failing the
// whole batch.
func (s *Session) FetchHeaders(ctx context.Context, uids []uint32, mode model.FetchMode) ([]scan.RawHeader, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	section := &imap.FetchItemBodySection{
		Specifier:    imap.PartSpecifierHeader,
		HeaderFields: headerFieldsFor(mode),
		Peek:         true,
	}

	fetchOpts := &imap.FetchOptions{
		UID:         true,
		RFC822Size:  mode == model.FetchFull,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	set := make([]imap.UID, len(uids))
	for i, uid := range uids {
		set[i] = imap.UID(uid)
	}

	fetchCmd := s.client.Fetch(imap.UIDSetNum(set...), fetchOpts)
	defer fetchCmd.Close()

	var headers []scan.RawHeader
	for {
		if err := ctx.Err(); err != nil {
			return headers, err
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		headers = append(headers, scan.RawHeader{
			UID:  uint32(buf.UID),
			Size: buf.RFC822Size,
			Raw:  buf.FindBodySection(section),
		})
	}

	if err := fetchCmd.Close(); err != nil {
		return headers, fmt.Errorf("fetching headers: %w", err)
	}

	return headers, nil
}

// SearchFrom asks the server for every UID in the selected folder whose
// From field matches sender, including messages never scanned locally.
func (s *Session) SearchFrom(ctx context.Context, sender string) ([]uint32, error) {
	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: sender},
		},
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages from %q: %w", sender, err)
	}

	raw := data.AllUIDs()
	uids := make([]uint32, 0, len(raw))
	for _, uid := range raw {
		uids = append(uids, uint32(uid))
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// MoveToTrash moves the given UIDs to the provider's trash folder.
func (s *Session) MoveToTrash(ctx context.Context, uids []uint32) error {
	set := make([]imap.UID, len(uids))
	for i, uid := range uids {
		set[i] = imap.UID(uid)
	}

	if _, err := s.client.Move(imap.UIDSetNum(set...), s.provider.TrashFolder).Wait(); err != nil {
		return fmt.Errorf("moving %d messages to %q: %w", len(uids), s.provider.TrashFolder, err)
	}
	return nil
}

// DeletePermanently flags the given UIDs \Deleted and expunges them.
func (s *Session) DeletePermanently(ctx context.Context, uids []uint32) error {
	set := make([]imap.UID, len(uids))
	for i, uid := range uids {
		set[i] = imap.UID(uid)
	}

	storeCmd := s.client.Store(imap.UIDSetNum(set...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging %d messages deleted: %w", len(uids), err)
	}

	if _, err := s.client.Expunge().Collect(); err != nil {
		return fmt.Errorf("expunging deleted messages: %w", err)
	}
	return nil
}
