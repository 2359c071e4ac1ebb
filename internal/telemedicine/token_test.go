package telemedicine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenExpiresAtSubtractsThreshold(t *testing.T) {
	issued := time.Unix(100000, 0)
	tok, err := NewToken("abc", issued, 86400*time.Second)
	require.NoError(t, err)

	assert.Equal(t, int64(186340), tok.ExpiresAt().Unix())
	assert.Equal(t, "abc", tok.AccessToken())
	assert.Equal(t, 86400*time.Second, tok.ExpiresIn())
}

func TestTokenValidAt(t *testing.T) {
	issued := time.Unix(100000, 0)
	tok, err := NewToken("abc", issued, 86400*time.Second)
	require.NoError(t, err)

	assert.True(t, tok.ValidAt(time.Unix(186339, 0)))
	assert.False(t, tok.ValidAt(time.Unix(186340, 0)))
	assert.False(t, tok.ValidAt(time.Unix(186341, 0)))
	// nominal expiry has not passed but the safety margin has
	assert.False(t, tok.ValidAt(time.Unix(186399, 0)))
}

func TestTokenNilIsInvalid(t *testing.T) {
	var tok *Token
	assert.False(t, tok.Valid())
}

func TestNewTokenRequiresFields(t *testing.T) {
	_, err := NewToken("", time.Now(), time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token")

	_, err = NewToken("abc", time.Now(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expires_in")
}
