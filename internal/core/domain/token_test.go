package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToken_Validate(t *testing.T) {
	tests := []struct {
		name    string
		token   Token
		wantErr error
	}{
		{
			name:  "valid token",
			token: Token{ContractHash: "0xabc", TokenID: "42", TokenURI: "https://example.com/42"},
		},
		{
			name:  "empty URI is allowed",
			token: Token{ContractHash: "0xabc", TokenID: "42"},
		},
		{
			name:    "missing contract hash",
			token:   Token{TokenID: "42"},
			wantErr: ErrMissingContractHash,
		},
		{
			name:    "missing token id",
			token:   Token{ContractHash: "0xabc"},
			wantErr: ErrMissingTokenID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.token.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetchCode_IsSuccess(t *testing.T) {
	assert.True(t, FetchCode(200).IsSuccess())
	assert.False(t, CodeNoResult.IsSuccess())
	assert.False(t, CodeInvalidIPFS.IsSuccess())
	assert.False(t, FetchCode(404).IsSuccess())
	assert.False(t, FetchCode(500).IsSuccess())
}

func TestNewTokenResult(t *testing.T) {
	token := Token{ContractHash: "0xabc", TokenID: "1", TokenURI: "https://example.com/1"}
	result := NewTokenResult(token, 200, `{"name":"one"}`)

	assert.Equal(t, token, result.Token)
	assert.Equal(t, FetchCode(200), result.Code)
	assert.Equal(t, `{"name":"one"}`, result.Metadata)
}
