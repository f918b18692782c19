package candid

import (
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// maxPrincipalLength is the longest binary principal.
const maxPrincipalLength = 29

// ParsePrincipal decodes the textual form of a principal, e.g. "aaaaa-aa",
// validating its checksum.
func ParsePrincipal(text string) ([]byte, error) {
	compact := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	raw, err := principalEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("invalid principal %q: %w", text, err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("invalid principal %q: too short", text)
	}
	id := raw[4:]
	if len(id) > maxPrincipalLength {
		return nil, fmt.Errorf("invalid principal %q: too long", text)
	}
	if binary.BigEndian.Uint32(raw[:4]) != crc32.ChecksumIEEE(id) {
		return nil, fmt.Errorf("invalid principal %q: checksum mismatch", text)
	}
	if FormatPrincipal(id) != text {
		return nil, fmt.Errorf("invalid principal %q: not in canonical form", text)
	}
	return id, nil
}

// FormatPrincipal is the textual form of a binary principal.
func FormatPrincipal(id []byte) string {
	raw := make([]byte, 4, 4+len(id))
	binary.BigEndian.PutUint32(raw, crc32.ChecksumIEEE(id))
	raw = append(raw, id...)
	s := strings.ToLower(principalEncoding.EncodeToString(raw))

	var b strings.Builder
	for i := 0; i < len(s); i += 5 {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + 5
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}

// IsPrincipal reports whether text is a valid textual principal.
func IsPrincipal(text string) bool {
	_, err := ParsePrincipal(text)
	return err == nil
}
