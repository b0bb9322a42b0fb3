package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const codeSeparator = ":"

// CodeInput identifies the signing event a verification code is bound to.
type CodeInput struct {
	ContractNumber string
	DocumentHash   string
	SignedAt       time.Time
}

// GenerateVerificationCode derives the short shareable code for a signing
// event: SHA-256 over "number:hash:epochMillis", first 16 hex chars,
// uppercased, grouped XXXX-XXXX-XXXX-XXXX. One-way; the code reveals nothing
// about the underlying hash.
func GenerateVerificationCode(in CodeInput) string {
	payload := strings.Join([]string{
		in.ContractNumber,
		in.DocumentHash,
		fmt.Sprintf("%d", in.SignedAt.UnixMilli()),
	}, codeSeparator)

	sum := sha256.Sum256([]byte(payload))
	raw := strings.ToUpper(hex.EncodeToString(sum[:])[:16])

	return fmt.Sprintf("%s-%s-%s-%s", raw[0:4], raw[4:8], raw[8:12], raw[12:16])
}

// VerifyWithCode checks a presented code against contract data. Hyphens are
// stripped before comparing; the comparison itself is case-sensitive against
// the uppercase generated form. A code that is not 16 hex characters after
// stripping is ErrMalformedInput, not a mismatch.
func VerifyWithCode(code string, in CodeInput) (bool, error) {
	normalized := strings.ReplaceAll(code, "-", "")
	if len(normalized) != 16 {
		return false, fmt.Errorf("%w: verification code must contain 16 hex characters, got %d", ErrMalformedInput, len(normalized))
	}
	for _, c := range normalized {
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')) {
			return false, fmt.Errorf("%w: verification code contains non-hex character %q", ErrMalformedInput, c)
		}
	}

	expected := strings.ReplaceAll(GenerateVerificationCode(in), "-", "")
	return normalized == expected, nil
}
