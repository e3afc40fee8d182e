// Package keys derives table storage keys from (project, branch)
// identities. Identities are free text and may contain characters the
// store forbids in partition or row keys; unsafe identities are replaced
// by a cryptographic digest of the pair rather than sanitized character
// by character, so two distinct identities can never collide.
package keys

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	// Separator joins project key and branch in the literal key form.
	Separator = "_"

	// MaxKeyLength is the store's limit on partition and row key size.
	MaxKeyLength = 1024

	// ForbiddenChars are rejected by the store in partition and row keys.
	ForbiddenChars = `/\#?`
)

// ValidationError reports an identity that cannot be turned into valid
// storage keys.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Pair holds the derived keys for one identity.
type Pair struct {
	// PartitionKey groups all metric rows of the identity.
	PartitionKey string
	// RowKey is the identity's row key inside the metadata partition.
	RowKey string
}

// Derive maps a (projectKey, branch) identity to its storage keys.
//
// The literal form projectKey + "_" + branch is used when it is
// unambiguous and within store constraints. If either field contains the
// separator (so the concatenation would be ambiguous), a forbidden
// character, or a control character, or if the literal form exceeds the
// length limit, both keys become the hex digest of the length-prefixed
// pair instead. The mapping is injective across distinct identities.
func Derive(projectKey, branch string) (Pair, error) {
	if projectKey == "" {
		return Pair{}, &ValidationError{Field: "project key", Reason: "must not be empty"}
	}
	if branch == "" {
		return Pair{}, &ValidationError{Field: "branch", Reason: "must not be empty"}
	}

	literal := projectKey + Separator + branch
	if literalSafe(projectKey) && literalSafe(branch) && len(literal) <= MaxKeyLength {
		return Pair{PartitionKey: literal, RowKey: literal}, nil
	}

	digest := hashPair(projectKey, branch)
	return Pair{PartitionKey: digest, RowKey: digest}, nil
}

// literalSafe reports whether a field can appear verbatim in a key: no
// separator (concatenation ambiguity), no forbidden characters, no
// control characters.
func literalSafe(field string) bool {
	if strings.Contains(field, Separator) {
		return false
	}
	if strings.ContainsAny(field, ForbiddenChars) {
		return false
	}
	for _, r := range field {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return false
		}
	}
	return true
}

// hashPair digests the identity with each field length-prefixed, so
// ("a_b", "c") and ("a", "b_c") hash differently even though their
// concatenations agree.
func hashPair(projectKey, branch string) string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(projectKey)))
	h.Write(buf[:])
	h.Write([]byte(projectKey))
	binary.BigEndian.PutUint64(buf[:], uint64(len(branch)))
	h.Write(buf[:])
	h.Write([]byte(branch))
	return hex.EncodeToString(h.Sum(nil))
}

// RowKeyForTime renders the row key of a metric entity within its
// partition: the observation date plus a microsecond suffix. Deriving it
// from the observation time rather than the wall clock keeps re-driven
// writes idempotent.
func RowKeyForTime(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s_%s%06d", t.Format("2006-01-02"), t.Format("150405"), t.Nanosecond()/1000)
}
