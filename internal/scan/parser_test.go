package scan

import (
	"strings"
	"testing"

	"github.com/asavschaeffer/email-assassin/internal/model"
)

func TestParseHeader_AngleBracketFrom(t *testing.T) {
	raw := []byte("From: Alice Example <Alice@Example.COM>\r\n" +
		"Subject: Weekly digest\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
		"\r\n")

	rec := ParseHeader(raw)

	if rec.Sender != "alice@example.com" {
		t.Fatalf("sender want alice@example.com got %q", rec.Sender)
	}
	if rec.DisplayName != "Alice Example" {
		t.Fatalf("display name got %q", rec.DisplayName)
	}
	if rec.Subject != "Weekly digest" {
		t.Fatalf("subject got %q", rec.Subject)
	}
	if rec.Date.IsZero() {
		t.Fatalf("date not parsed")
	}
}

func TestParseHeader_BareAddress(t *testing.T) {
	rec := ParseHeader([]byte("From: BOB@example.com\r\n\r\n"))
	if rec.Sender != "bob@example.com" {
		t.Fatalf("sender got %q", rec.Sender)
	}
}

func TestParseHeader_MissingFrom(t *testing.T) {
	rec := ParseHeader([]byte("Subject: no sender here\r\n\r\n"))
	if rec.Sender != model.SenderUnknown {
		t.Fatalf("sender want %q got %q", model.SenderUnknown, rec.Sender)
	}
	if rec.HasSender() {
		t.Fatalf("sentinel must not count as a sender")
	}
}

func TestParseHeader_UnparsableFromValue(t *testing.T) {
	// Not an address list, so the structured parse fails and the raw
	// value is kept.
	rec := ParseHeader([]byte("From: Totally Unstructured Value\r\n\r\n"))
	if rec.Sender != "totally unstructured value" {
		t.Fatalf("sender got %q", rec.Sender)
	}
}

func TestParseHeader_Unsubscribe(t *testing.T) {
	raw := []byte("From: news@shop.example\r\n" +
		"List-Unsubscribe: <mailto:unsub@shop.example>, <https://shop.example/unsub?id=1>\r\n" +
		"\r\n")

	rec := ParseHeader(raw)

	if rec.UnsubscribeHTTP != "https://shop.example/unsub?id=1" {
		t.Fatalf("http link got %q", rec.UnsubscribeHTTP)
	}
	if rec.UnsubscribeMailto != "mailto:unsub@shop.example" {
		t.Fatalf("mailto link got %q", rec.UnsubscribeMailto)
	}
}

func TestParseHeader_UnsubscribeFirstOfEachKind(t *testing.T) {
	raw := []byte("From: news@shop.example\r\n" +
		"List-Unsubscribe: <https://a.example/u>, <https://b.example/u>\r\n" +
		"\r\n")

	rec := ParseHeader(raw)
	if rec.UnsubscribeHTTP != "https://a.example/u" {
		t.Fatalf("want first http link, got %q", rec.UnsubscribeHTTP)
	}
}

func TestParseHeader_InvalidBytes(t *testing.T) {
	raw := []byte("From: <carol@example.com>\r\nSubject: \xff\xfe broken\r\n\r\n")

	rec := ParseHeader(raw)
	if rec.Sender != "carol@example.com" {
		t.Fatalf("sender got %q", rec.Sender)
	}
	if strings.ContainsRune(rec.Subject, 0xFFFD) {
		t.Fatalf("invalid bytes leaked into subject: %q", rec.Subject)
	}
}

func TestParseHeader_NeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("\r\n"),
		[]byte(strings.Repeat("a", 4096)),
		[]byte("From:\r\n\r\n"),
	}
	for _, in := range inputs {
		rec := ParseHeader(in)
		if rec.HasSender() {
			t.Fatalf("input %q produced sender %q", in, rec.Sender)
		}
	}
}
