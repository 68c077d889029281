package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "provenant/pkg/domain-errors"
)

// TestParsePassportID_Invariants validates the parsing invariant:
// "passport ids are positive decimal integers; 0 is reserved"
func TestParsePassportID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePassportID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects reserved zero", func(t *testing.T) {
		_, err := ParsePassportID("0")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects negative and non-numeric", func(t *testing.T) {
		for _, in := range []string{"-1", "abc", "1.5", "0x10"} {
			_, err := ParsePassportID(in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), in)
		}
	})

	t.Run("accepts positive id", func(t *testing.T) {
		id, err := ParsePassportID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, PassportID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Identity
		wantErr bool
	}{
		{"address is lowercased", "0xABCdef01", "0xabcdef01", false},
		{"surrounding whitespace trimmed", "  lab-a  ", "lab-a", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"embedded space", "lab a", "", true},
		{"null byte", "lab\x00a", "", true},
		{"non-ascii", "lab\u200Ba", "", true},
		{"oversized", strings.Repeat("a", 300), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionalIdentity(t *testing.T) {
	got, err := OptionalIdentity("   ")
	require.NoError(t, err)
	assert.True(t, got.IsNil())

	got, err = OptionalIdentity("LAB-X")
	require.NoError(t, err)
	assert.Equal(t, Identity("lab-x"), got)
}

func TestParseTestResultID(t *testing.T) {
	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseTestResultID(uuid.Nil.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("round-trips through text", func(t *testing.T) {
		id := NewTestResultID()
		text, err := id.MarshalText()
		require.NoError(t, err)

		var parsed TestResultID
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, id, parsed)
	})
}
