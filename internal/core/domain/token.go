// Package domain contains the core entities of the metadata crawler.
package domain

import "errors"

// =============================================================================
// Token Errors
// =============================================================================

var (
	ErrMissingContractHash = errors.New("token has no contract hash")
	ErrMissingTokenID      = errors.New("token has no token id")
)

// =============================================================================
// Fetch Codes
// =============================================================================

// FetchCode classifies the outcome of resolving a token URI.
//
// Successful HTTP fetches carry the upstream status code unchanged
// (200, 404, ...). Values below 100 are crawler-assigned outcomes for
// requests that never produced an HTTP response.
type FetchCode int

const (
	// CodeNoResult means the request produced no response at all.
	CodeNoResult FetchCode = 0

	// CodeNotParsable means a response arrived but its body is not JSON.
	CodeNotParsable FetchCode = 1

	// CodeInvalidURI means the token URI could not be parsed as a URL.
	CodeInvalidURI FetchCode = 2

	// CodeServiceNotFound means the host could not be reached.
	CodeServiceNotFound FetchCode = 3

	// CodeInvalidIPFS means an ipfs:// URI without a resolvable CID.
	CodeInvalidIPFS FetchCode = 4

	// CodeUnknownProtocol means a URI scheme the crawler does not speak.
	CodeUnknownProtocol FetchCode = 5
)

// IsSuccess reports whether the code represents a fetch that yielded
// usable metadata.
func (c FetchCode) IsSuccess() bool {
	return c == 200
}

// =============================================================================
// Token
// =============================================================================

// Token identifies an NFT whose metadata should be crawled.
type Token struct {
	ContractHash string `json:"contractHash"`
	TokenID      string `json:"tokenId"`
	TokenURI     string `json:"tokenUri"`
}

// Validate checks that the token carries the fields required to persist
// a result for it.
func (t Token) Validate() error {
	if t.ContractHash == "" {
		return ErrMissingContractHash
	}
	if t.TokenID == "" {
		return ErrMissingTokenID
	}
	return nil
}

// =============================================================================
// Token Result
// =============================================================================

// TokenResult is a token together with its resolved metadata.
//
// Metadata always holds a JSON document: either the fetched metadata or a
// small {"error": ...} object describing why the fetch failed.
type TokenResult struct {
	Token
	Code     FetchCode
	Metadata string
}

// NewTokenResult attaches a fetch outcome to a token.
func NewTokenResult(token Token, code FetchCode, metadata string) TokenResult {
	return TokenResult{
		Token:    token,
		Code:     code,
		Metadata: metadata,
	}
}
