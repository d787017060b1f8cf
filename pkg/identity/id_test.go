package identity

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("RendersAs40LowercaseHex", func(t *testing.T) {
		id := Generate()
		s := id.String()

		assert.Len(t, s, EncodedLen)
		assert.Equal(t, strings.ToLower(s), s)
		for _, r := range s {
			assert.Contains(t, "0123456789abcdef", string(r))
		}
	})

	t.Run("Unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 1000; i++ {
			s := Generate().String()
			_, dup := seen[s]
			require.False(t, dup, "duplicate id %s", s)
			seen[s] = struct{}{}
		}
	})
}

func TestParse(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		id := Generate()

		parsed, err := Parse(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("LeadingZerosPreserved", func(t *testing.T) {
		var id ID
		for i := range id {
			id[i] = 0xff
		}
		id[0] = 0x0f

		s := id.String()
		assert.Equal(t, "0fffffffffffffffffffffffffffffffffffffff", s)

		parsed, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("WrongLength", func(t *testing.T) {
		for _, s := range []string{"", "abc", strings.Repeat("a", 39), strings.Repeat("a", 41)} {
			_, err := Parse(s)
			assert.ErrorIs(t, err, ErrInvalidLength, "input %q", s)
		}
	})

	t.Run("NonHex", func(t *testing.T) {
		_, err := Parse(strings.Repeat("g", EncodedLen))
		assert.ErrorIs(t, err, ErrInvalidValue)

		_, err = Parse(strings.Repeat("a", EncodedLen-1) + "-")
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}

func TestClientIDJSON(t *testing.T) {
	cid := GenerateClientID()

	raw, err := json.Marshal(cid)
	require.NoError(t, err)
	assert.Equal(t, `"`+cid.String()+`"`, string(raw))

	var back ClientID
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, cid, back)

	var bad ClientID
	err = json.Unmarshal([]byte(`"not-an-id"`), &bad)
	assert.Error(t, err)
}

func TestCookieIDParse(t *testing.T) {
	cookie := GenerateCookieID()

	parsed, err := ParseCookieID(cookie.String())
	require.NoError(t, err)
	assert.Equal(t, cookie, parsed)
}
