package facts

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// ParseValue parses a lifter constant. The lifter pads some constants with
// leading zeros, which uint256 rejects, so they are trimmed first.
func ParseValue(s string) (*uint256.Int, error) {
	h := strings.TrimSpace(s)
	if !strings.HasPrefix(h, "0x") && !strings.HasPrefix(h, "0X") {
		return nil, fmt.Errorf("value %q: missing 0x prefix", s)
	}
	digits := strings.TrimLeft(h[2:], "0")
	if digits == "" {
		digits = "0"
	}
	z, err := uint256.FromHex("0x" + digits)
	if err != nil {
		return nil, fmt.Errorf("value %q: %w", s, err)
	}
	return z, nil
}

// CanonicalValue returns the canonical hex form of a lifter constant.
func CanonicalValue(s string) (string, error) {
	z, err := ParseValue(s)
	if err != nil {
		return "", err
	}
	return z.Hex(), nil
}
