package service

import (
	"slices"
	"strings"
)

// gmailDomains ignore dots and +tags in the local part.
var gmailDomains = []string{"gmail.com", "googlemail.com"}

// CanonicalizeEmail returns the form of an address used for uniqueness and
// login lookups. Addresses are lowercased; Gmail addresses also lose dots
// and +tags, so j.doe+shop@gmail.com and jdoe@gmail.com collide.
func CanonicalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	local, domain, ok := strings.Cut(email, "@")
	if !ok || !slices.Contains(gmailDomains, domain) {
		return email
	}

	local, _, _ = strings.Cut(local, "+")
	return strings.ReplaceAll(local, ".", "") + "@" + domain
}

// EmailDomainAllowed reports whether email belongs to one of the allowed
// domains. An empty list allows every domain.
func EmailDomainAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	return slices.ContainsFunc(allowed, func(candidate string) bool {
		return strings.EqualFold(strings.TrimSpace(candidate), domain)
	})
}
