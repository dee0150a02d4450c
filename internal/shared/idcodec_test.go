package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDCodecRoundTrip(t *testing.T) {
	codec := NewIDCodec("test-secret")

	for _, id := range []int64{0, 1, 42, 987654321, 1<<62 + 7} {
		token := codec.Encode(id)
		require.NotEmpty(t, token)

		decoded, err := codec.Decode(token)
		require.NoError(t, err)
		require.Equal(t, id, decoded)
	}
}

func TestIDCodecTokensAreOpaque(t *testing.T) {
	codec := NewIDCodec("test-secret")

	// Same id must not produce the same token twice.
	first := codec.Encode(77)
	second := codec.Encode(77)
	require.NotEqual(t, first, second)
}

func TestIDCodecRejectsGarbage(t *testing.T) {
	codec := NewIDCodec("test-secret")

	cases := []string{"", "not-base64!!", "c2hvcnQ", codec.Encode(5) + "x"}
	for _, tc := range cases {
		_, err := codec.Decode(tc)
		require.ErrorIs(t, err, ErrInvalidRecordID)
	}
}

func TestIDCodecRejectsForeignKey(t *testing.T) {
	token := NewIDCodec("secret-a").Encode(19)

	_, err := NewIDCodec("secret-b").Decode(token)
	require.ErrorIs(t, err, ErrInvalidRecordID)
}
