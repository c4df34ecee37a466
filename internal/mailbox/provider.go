package mailbox

import "strings"

// Provider describes the IMAP endpoint and trash folder for a mail host.
type Provider struct {
	Host        string
	Port        string
	TrashFolder string
}

// Addr returns the dialable host:port for the provider.
func (p Provider) Addr() string {
	return p.Host + ":" + p.Port
}

// ProviderFor derives the IMAP provider from the domain of the account
// address. Unrecognized domains fall back to Gmail, matching the most
// common app-password setup. The lookup is total: it never fails and
// performs no network I/O.
func ProviderFor(address string) Provider {
	domain := address
	if i := strings.LastIndex(address, "@"); i >= 0 {
		domain = address[i+1:]
	}
	domain = strings.ToLower(domain)

	switch {
	case strings.Contains(domain, "outlook"),
		strings.Contains(domain, "hotmail"),
		strings.Contains(domain, "live.com"):
		return Provider{
			Host:        "imap-mail.outlook.com",
			Port:        "993",
			TrashFolder: "Deleted",
		}
	case strings.Contains(domain, "yahoo"):
		return Provider{
			Host:        "imap.mail.yahoo.com",
			Port:        "993",
			TrashFolder: "Trash",
		}
	case strings.Contains(domain, "icloud"),
		strings.Contains(domain, "me.com"),
		strings.Contains(domain, "mac.com"):
		return Provider{
			Host:        "imap.mail.me.com",
			Port:        "993",
			TrashFolder: "Deleted Messages",
		}
	default:
		return Provider{
			Host:        "imap.gmail.com",
			Port:        "993",
			TrashFolder: "[Gmail]/Trash",
		}
	}
}

// WithOverride replaces the derived host and port when an explicit server
// is configured. Empty override fields keep the derived values.
func (p Provider) WithOverride(host, port string) Provider {
	if host != "" {
		p.Host = host
	}
	if port != "" {
		p.Port = port
	}
	return p
}
