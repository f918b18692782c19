package candid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalText(t *testing.T) {
	tests := []struct {
		text string
		id   []byte
	}{
		{"aaaaa-aa", []byte{}},
		{"rrkah-fqaaa-aaaaa-aaaaq-cai", []byte{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}},
		{"rkp4c-7iaaa-aaaaa-aaaca-cai", []byte{0, 0, 0, 0, 0, 0, 0, 4, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, FormatPrincipal(tt.id))
			id, err := ParsePrincipal(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.True(t, IsPrincipal(tt.text))
		})
	}
}

func TestPrincipalInvalid(t *testing.T) {
	for _, text := range []string{
		"",
		"my_component",
		"rrkah-fqaaa-aaaaa-aaaaq-caa",
		"RRKAH-FQAAA-AAAAA-AAAAQ-CAI",
		"rrkahfqaaaaaaaaaaaaqcai",
	} {
		assert.False(t, IsPrincipal(text), text)
	}
}
