// Package uri contains pure token URI resolution rules.
// This package contains no I/O.
package uri

import (
	"encoding/base64"
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrNotDataURI     = errors.New("not a data URI")
	ErrInvalidDataURI = errors.New("invalid data URI")
)

// cidRe matches the first path segment that looks like an IPFS CID:
// 46 characters for v0 (Qm...) or 59 lowercase characters for v1.
var cidRe = regexp.MustCompile(`/([a-zA-Z0-9]{46}|[a-z0-9]{59})(/|$)`)

// =============================================================================
// Data URIs
// =============================================================================

// DecodeDataURI decodes an RFC 2397 data URI and returns its payload as a
// string. Returns ErrNotDataURI for anything without the data: scheme, so
// callers can fall through to a network fetch.
func DecodeDataURI(tokenURI string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(tokenURI), "data:") {
		return "", ErrNotDataURI
	}

	rest := tokenURI[len("data:"):]
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return "", ErrInvalidDataURI
	}

	meta := rest[:comma]
	payload := rest[comma+1:]

	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some emitters use unpadded base64.
			decoded, err = base64.RawStdEncoding.DecodeString(payload)
			if err != nil {
				return "", ErrInvalidDataURI
			}
		}
		return string(decoded), nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return "", ErrInvalidDataURI
	}
	return decoded, nil
}

// =============================================================================
// IPFS Gateway Rewriting
// =============================================================================

// RewriteIPFS re-roots a URI containing an IPFS CID at the given gateway.
//
// The rewrite keeps everything from the CID onward, so both
// "https://some.host/ipfs/Qm.../1.json" and "ipfs://Qm.../1.json" end up
// as "{gateway}/Qm.../1.json". URIs without a CID-shaped path segment are
// returned unchanged.
func RewriteIPFS(tokenURI, gateway string) string {
	loc := cidRe.FindStringIndex(tokenURI)
	if loc == nil {
		return tokenURI
	}
	return gateway + tokenURI[loc[0]:]
}

// =============================================================================
// Scheme Classification
// =============================================================================

// IsIPFS reports whether the URI still carries the ipfs:// scheme, which
// means no CID could be extracted for a gateway rewrite.
func IsIPFS(tokenURI string) bool {
	return strings.HasPrefix(strings.ToLower(tokenURI), "ipfs://")
}

// IsArweave reports whether the URI uses the ar:// scheme.
func IsArweave(tokenURI string) bool {
	return strings.HasPrefix(strings.ToLower(tokenURI), "ar://")
}
