package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	code, err := generateOTP()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9', "OTP must be numeric, got %q", code)
	}
}

func TestOTPHashAndVerify(t *testing.T) {
	hash, err := hashOTP("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash, "plaintext must never be stored")

	assert.True(t, verifyOTP(hash, "123456"))
	assert.False(t, verifyOTP(hash, "654321"))
	assert.False(t, verifyOTP(hash, ""))
}
