package anchor

import (
	"encoding/hex"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/zeebo/blake3"
)

// ContentHash computes the BLAKE3 digest over the ordered concatenation of
// the resolved rule contents named in spec.Over, separated by ASCII RS
// (0x1E). If any named rule failed to resolve, the hash is omitted (the
// caller gets ok = false) — the match itself still stands.
func ContentHash(spec *domain.ContentHashSpec, contents map[string]string) (string, bool) {
	if spec == nil || len(spec.Over) == 0 {
		return "", false
	}

	h := blake3.New()
	for i, name := range spec.Over {
		content, ok := contents[name]
		if !ok {
			return "", false
		}
		if i > 0 {
			h.Write([]byte(recordSeparator))
		}
		h.Write([]byte(content))
	}
	sum := h.Sum(nil)
	return "blake3:" + hex.EncodeToString(sum), true
}
