package mailbox

import "testing"

func TestProviderFor(t *testing.T) {
	cases := []struct {
		address string
		host    string
		trash   string
	}{
		{"user@gmail.com", "imap.gmail.com", "[Gmail]/Trash"},
		{"user@googlemail.com", "imap.gmail.com", "[Gmail]/Trash"},
		{"user@outlook.com", "imap-mail.outlook.com", "Deleted"},
		{"user@hotmail.co.uk", "imap-mail.outlook.com", "Deleted"},
		{"user@live.com", "imap-mail.outlook.com", "Deleted"},
		{"user@yahoo.com", "imap.mail.yahoo.com", "Trash"},
		{"user@icloud.com", "imap.mail.me.com", "Deleted Messages"},
		{"user@me.com", "imap.mail.me.com", "Deleted Messages"},
		{"user@mac.com", "imap.mail.me.com", "Deleted Messages"},
		{"user@example.org", "imap.gmail.com", "[Gmail]/Trash"},
		{"User@OUTLOOK.COM", "imap-mail.outlook.com", "Deleted"},
		{"no-at-sign", "imap.gmail.com", "[Gmail]/Trash"},
	}

	for _, c := range cases {
		p := ProviderFor(c.address)
		if p.Host != c.host {
			t.Fatalf("%s: host want %s got %s", c.address, c.host, p.Host)
		}
		if p.TrashFolder != c.trash {
			t.Fatalf("%s: trash want %q got %q", c.address, c.trash, p.TrashFolder)
		}
		if p.Port != "993" {
			t.Fatalf("%s: port got %s", c.address, p.Port)
		}
	}
}

func TestProviderAddr(t *testing.T) {
	p := ProviderFor("user@gmail.com")
	if got := p.Addr(); got != "imap.gmail.com:993" {
		t.Fatalf("addr got %s", got)
	}
}

func TestProviderWithOverride(t *testing.T) {
	p := ProviderFor("user@example.org").WithOverride("mail.example.org", "1993")
	if p.Host != "mail.example.org" || p.Port != "1993" {
		t.Fatalf("override got %s:%s", p.Host, p.Port)
	}
	if p.TrashFolder != "[Gmail]/Trash" {
		t.Fatalf("override must keep the trash folder, got %q", p.TrashFolder)
	}

	p = ProviderFor("user@yahoo.com").WithOverride("", "")
	if p.Host != "imap.mail.yahoo.com" || p.Port != "993" {
		t.Fatalf("empty override must keep derived values, got %s:%s", p.Host, p.Port)
	}
}
