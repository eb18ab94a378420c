package app

import (
	"fmt"
	"net/url"
	"strings"
)

// LinkParam is the query parameter the QR connect link carries the device
// address in.
const LinkParam = "device"

// StartAddress is the address the connect prompt opens with.
type StartAddress struct {
	Address string
	// Connect is set when the address came from a link or flag and should be
	// tried right away. A remembered address only pre-fills the prompt.
	Connect bool
}

// ParseLinkAddress extracts the device address from a connect link such as
// http://host/?device=192.168.4.1. A bare query string is accepted too.
func ParseLinkAddress(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", nil
	}
	var query string
	if strings.Contains(link, "://") {
		u, err := url.Parse(link)
		if err != nil {
			return "", fmt.Errorf("parse link %q: %w", link, err)
		}
		query = u.RawQuery
	} else {
		query = strings.TrimPrefix(link, "?")
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	return strings.TrimSpace(values.Get(LinkParam)), nil
}

// BuildLink returns a connect link for address rooted at base.
func BuildLink(base, address string) string {
	if base == "" {
		base = "http://localhost/"
	}
	u, err := url.Parse(base)
	if err != nil {
		u = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	}
	if u.Path == "" {
		u.Path = "/"
	}
	q := u.Query()
	q.Set(LinkParam, address)
	u.RawQuery = q.Encode()
	return u.String()
}

// ResolveStartAddress picks the initial address. A link parameter wins over
// an explicit device flag, and either wins over the remembered address and
// the configured default, which only pre-fill.
func ResolveStartAddress(link, flagAddress, remembered, configured string) (StartAddress, error) {
	fromLink, err := ParseLinkAddress(link)
	if err != nil {
		return StartAddress{}, err
	}
	for _, param := range []string{fromLink, strings.TrimSpace(flagAddress)} {
		if param != "" {
			return StartAddress{Address: param, Connect: true}, nil
		}
	}
	for _, fallback := range []string{remembered, configured} {
		if trimmed := strings.TrimSpace(fallback); trimmed != "" {
			return StartAddress{Address: trimmed}, nil
		}
	}
	return StartAddress{}, nil
}
