package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveVersion(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{name: "master branch", ref: "refs/heads/master", want: "latest"},
		{name: "feature branch", ref: "refs/heads/develop", want: "develop"},
		{name: "v-prefixed tag", ref: "refs/tags/v1.2.3", want: "1.2.3"},
		{name: "bare tag", ref: "refs/tags/1.2.3", want: "1.2.3"},
		{name: "tag with v inside", ref: "refs/tags/rev7", want: "rev7"},
		{name: "only first v stripped", ref: "refs/tags/vv1", want: "v1"},
		{name: "bare master string", ref: "master", want: "latest"},
		{name: "bare version string", ref: "2.0.0", want: "2.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveVersion(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveVersion_Empty(t *testing.T) {
	_, err := DeriveVersion("")
	assert.ErrorIs(t, err, ErrEmptyRef)

	// A tag of just "v" strips down to nothing.
	_, err = DeriveVersion("refs/tags/v")
	assert.ErrorIs(t, err, ErrEmptyRef)
}

func TestIsReleaseRef(t *testing.T) {
	assert.True(t, IsReleaseRef("refs/heads/master"))
	assert.True(t, IsReleaseRef("refs/tags/v1.2.3"))
	assert.False(t, IsReleaseRef("refs/heads/develop"))
	assert.False(t, IsReleaseRef("refs/tags/1.2.3"))
	assert.False(t, IsReleaseRef(""))
}
