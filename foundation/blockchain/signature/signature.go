// Package signature provides helper functions for handling the blockchain
// hashing needs.
package signature

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroHash represents the digest returned when a value can't be encoded.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// HashLength is the number of hex characters in a digest.
const HashLength = 2 * sha256.Size

// =============================================================================

// Hash returns a unique string for the value. The value is encoded using the
// canonical form so every node, regardless of implementation language,
// produces the same digest for the same logical content.
func Hash(value any) string {
	data, err := Canonical(value)
	if err != nil {
		return ZeroHash
	}

	return HashBytes(data)
}

// HashBytes returns the SHA-256 digest of the data as lowercase hex.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return common.Bytes2Hex(hash[:])
}
