package license

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateKey produces a license key of the form PREFIX-AAAAAA-BBBBBB-CCCCCC.
// The prefix is the first 4 characters of the shop name, uppercased, with
// non-letters replaced by 'X'. The key identifies a license for support
// purposes only; it grants nothing, so probabilistic uniqueness is enough.
// durationMonths is accepted for interface symmetry with issuance and does
// not affect the key.
func GenerateKey(shopName string, durationMonths int) string {
	return fmt.Sprintf("%s-%s-%s-%s", keyPrefix(shopName), randomBlock(), randomBlock(), randomBlock())
}

func keyPrefix(shopName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(shopName) {
		if b.Len() == 4 {
			break
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		} else {
			b.WriteByte('X')
		}
	}
	for b.Len() < 4 {
		b.WriteByte('X')
	}
	return b.String()
}

func randomBlock() string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return strings.ToUpper(hex.EncodeToString(buf))
}
