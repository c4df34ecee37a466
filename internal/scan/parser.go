package scan

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/asavschaeffer/email-assassin/internal/model"
)

var (
	fromLinePattern  = regexp.MustCompile(`(?i)From:[ \t]*(.*)`)
	unsubLinePattern = regexp.MustCompile(`(?i)List-Unsubscribe:[ \t]*(.*)`)
	angleAddrPattern = regexp.MustCompile(`<([^>]+)>`)
)

// ParseHeader extracts a HeaderRecord from one raw header blob. It is a
// pure function and never fails: invalid bytes are dropped, a missing From
// field yields the "unknown" sentinel, and any parser panic yields the
// "error" sentinel. Malformed mail must cost a record, not a scan.
func ParseHeader(raw []byte) (rec model.HeaderRecord) {
	rec = model.HeaderRecord{Sender: model.SenderUnknown}

	defer func() {
		if recover() != nil {
			rec.Sender = model.SenderError
		}
	}()

	text := strings.ToValidUTF8(string(raw), "")

	hdr, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(text)))
	if err != nil {
		// Header block too mangled for a structured read: salvage the
		// fields line by line.
		rec.Sender = senderFromValue(firstMatch(fromLinePattern, text))
		parseUnsubscribe(firstMatch(unsubLinePattern, text), &rec)
		return rec
	}

	mh := mail.Header{Header: message.Header{Header: hdr}}

	if addrs, addrErr := mh.AddressList("From"); addrErr == nil && len(addrs) > 0 {
		rec.Sender = strings.ToLower(strings.TrimSpace(addrs[0].Address))
		rec.DisplayName = addrs[0].Name
	} else if v := hdr.Get("From"); v != "" {
		rec.Sender = senderFromValue(v)
	}

	if subj, subjErr := mh.Subject(); subjErr == nil {
		rec.Subject = subj
	} else {
		rec.Subject = hdr.Get("Subject")
	}

	if date, dateErr := mh.Date(); dateErr == nil {
		rec.Date = date
	}

	parseUnsubscribe(hdr.Get("List-Unsubscribe"), &rec)

	return rec
}

// senderFromValue extracts a lowercased address from a raw From value:
// the angle-bracketed part when present, otherwise the whole value.
func senderFromValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return model.SenderUnknown
	}
	if m := angleAddrPattern.FindStringSubmatch(v); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	return strings.ToLower(v)
}

// parseUnsubscribe records the first HTTP and first mailto URI from a
// List-Unsubscribe value. URIs outside angle brackets are ignored.
func parseUnsubscribe(v string, rec *model.HeaderRecord) {
	if v == "" {
		return
	}
	for _, m := range angleAddrPattern.FindAllStringSubmatch(v, -1) {
		uri := strings.TrimSpace(m[1])
		lower := strings.ToLower(uri)
		switch {
		case strings.HasPrefix(lower, "http") && rec.UnsubscribeHTTP == "":
			rec.UnsubscribeHTTP = uri
		case strings.HasPrefix(lower, "mailto:") && rec.UnsubscribeMailto == "":
			rec.UnsubscribeMailto = uri
		}
	}
}

// firstMatch returns the first capture group of the first match, or "".
func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
