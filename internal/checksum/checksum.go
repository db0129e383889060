package checksum

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the 64-bit xxhash digest of data as 16 lowercase hex digits.
func Sum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
