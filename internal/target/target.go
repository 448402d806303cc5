package target

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reSpacedIP = regexp.MustCompile(`(\d{1,3})\.\s*(\d{1,3})\.\s*(\d{1,3})\.\s*(\d{1,3})`)
	reIPPort   = regexp.MustCompile(`^(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})(:\d+)?$`)
	reHTTPURL  = regexp.MustCompile(`^(https?://)([^/]+)(/.*)?$`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// trailingJunk are the characters scanners leave dangling after a target.
const trailingJunk = "[]{}<>"

// RepairIP collapses whitespace after the dots of dotted-quad addresses,
// e.g. "172. 17. 0. 254" becomes "172.17.0.254".
func RepairIP(s string) string {
	return reSpacedIP.ReplaceAllString(s, "$1.$2.$3.$4")
}

// Clean trims a raw target, drops trailing bracket characters, repairs
// spaced-out IPs and removes whitespace from the host part of URLs.
// Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(trailingJunk, r)
	})
	if s == "" {
		return ""
	}

	s = RepairIP(s)

	if scheme, rest, ok := strings.Cut(s, "://"); ok {
		host, path, hasPath := strings.Cut(rest, "/")
		host = reSpaces.ReplaceAllString(host, "")
		if hasPath {
			s = scheme + "://" + host + "/" + path
		} else {
			s = scheme + "://" + host
		}
	}
	return s
}

// DisplayForm is the human-readable label of a target: bare IPs lose their
// port, http(s) URLs on an IP host keep scheme and path but lose the port,
// anything else is returned cleaned.
func DisplayForm(s string) string {
	s = Clean(s)
	if s == "" {
		return ""
	}

	if m := reIPPort.FindStringSubmatch(s); m != nil {
		return m[1]
	}

	if m := reHTTPURL.FindStringSubmatch(s); m != nil {
		scheme, host, path := m[1], m[2], m[3]
		if hm := reIPPort.FindStringSubmatch(host); hm != nil {
			host = hm[1]
		}
		return scheme + host + path
	}

	return s
}

// MatchKey is the subject identity of a target. Scheme, port and path are
// ignored, so "https://10.0.0.5:8443/x" and "10.0.0.5" share a key.
func MatchKey(s string) string {
	s = Clean(s)
	if s == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(s, "http://"):
		s = strings.TrimPrefix(s, "http://")
	case strings.HasPrefix(s, "https://"):
		s = strings.TrimPrefix(s, "https://")
	}

	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}

	if m := reIPPort.FindStringSubmatch(s); m != nil {
		return m[1]
	}

	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return s
}

// IsIP reports whether s is a dotted-quad address, optionally with a port.
func IsIP(s string) bool {
	return reIPPort.MatchString(s)
}
