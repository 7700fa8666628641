package gmailclient

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	raw, err := base64.URLEncoding.DecodeString(encodeMessage("planning@example.com", "chief@example.com", "Shortfall", "2 slots open"))
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "From: planning@example.com\r\n")
	assert.Contains(t, msg, "To: chief@example.com\r\nSubject: Shortfall\r\n")
	assert.Contains(t, msg, "\r\n\r\n2 slots open")
}

func TestEncodeMessage_NoSender(t *testing.T) {
	raw, err := base64.URLEncoding.DecodeString(encodeMessage("", "chief@example.com", "s", "b"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "From:")
}
