package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// HashAlgorithm is the single digest algorithm used for documents and
// signature payloads alike.
const HashAlgorithm = "SHA-256"

// Digest is a computed document or signature hash. Immutable once computed.
type Digest struct {
	Algorithm string `json:"algorithm"`
	Hex       string `json:"hex"` // 64 lowercase hex chars
}

// ComputeHash digests arbitrary bytes. Pure: same input, same digest, across
// calls and process restarts. An empty input is hashed like any other.
func ComputeHash(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest{
		Algorithm: HashAlgorithm,
		Hex:       hex.EncodeToString(sum[:]),
	}
}

// HashReader digests a byte stream without buffering it in memory. Read
// failures come back wrapped in ErrSourceUnavailable.
func HashReader(r io.Reader) (Digest, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return Digest{
		Algorithm: HashAlgorithm,
		Hex:       hex.EncodeToString(h.Sum(nil)),
	}, nil
}
