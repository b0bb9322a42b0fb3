package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// SealInput is everything a tamper-evident seal binds together.
type SealInput struct {
	DocumentHash    string
	SignatureHashes []string
	Timestamp       time.Time
	ContractNumber  string
}

// canonicalSeal is the serialized form that gets hashed. Field order is fixed
// by the struct so two parties always produce identical bytes.
type canonicalSeal struct {
	DocumentHash    string   `json:"document_hash"`
	SignatureHashes []string `json:"signature_hashes"`
	Timestamp       string   `json:"timestamp"`
	ContractNumber  string   `json:"contract_number"`
}

// CreateSeal folds a document hash, all signature hashes, a timestamp and the
// contract number into a single hash. Signature hashes are sorted first, so
// the seal does not depend on the order signers completed in; the recorded
// per-signer timestamps carry ordering separately.
func CreateSeal(in SealInput) string {
	sorted := make([]string, len(in.SignatureHashes))
	copy(sorted, in.SignatureHashes)
	sort.Strings(sorted)

	canonical := canonicalSeal{
		DocumentHash:    in.DocumentHash,
		SignatureHashes: sorted,
		Timestamp:       in.Timestamp.UTC().Format(time.RFC3339),
		ContractNumber:  in.ContractNumber,
	}

	// Marshaling a flat struct of strings cannot fail.
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifySeal recomputes the seal and compares. Any byte difference in the
// inputs is a mismatch; there is no partial match.
func VerifySeal(in SealInput, expectedSeal string) bool {
	return CreateSeal(in) == expectedSeal
}
