// Package version reports the build-time version string, set via
// -ldflags at release build time and defaulting to "dev" otherwise.
package version

import (
	"encoding/hex"
	"os"

	"github.com/zeebo/blake3"
)

// Version is overridden at build time with -ldflags "-X .../version.Version=...".
var Version = "dev"

// Value returns the active version string.
func Value() string {
	return Version
}

// BinaryHash returns a BLAKE3 digest of the running executable's own
// bytes, encoded as "blake3:<hex>", for the witness ledger's binary_hash
// field. Returns the empty string if the executable cannot be located or
// read. Under `go test` os.Executable is the test binary, which is hashed.
func BinaryHash() string {
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	h := blake3.New()
	h.Write(data)
	return "blake3:" + hex.EncodeToString(h.Sum(nil))
}
