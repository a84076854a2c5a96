package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTransform = "imputer/transform/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator - CRITICAL for boundary ambiguity
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TransformID computes the content-addressed ID of a fitted transform from
// its ordered column list and substitution values. Two fits that produce the
// same mapping in the same order share an ID.
func TransformID(columns []string, values Row) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"columns": columns,
		"values":  values,
	})
	if err != nil {
		return "", fmt.Errorf("TransformID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTransform, canonical), nil
}
