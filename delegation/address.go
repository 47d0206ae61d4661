package delegation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for address parsing
var (
	ErrEmptyAddress   = errors.New("address is empty")
	ErrInvalidAddress = errors.New("address must be 20 bytes of hex with 0x prefix")
)

// ParseAddress parses a hex account reference. Hex digits are case-insensitive,
// so "0xAbC..." and "0xabc..." resolve to the same Address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, ErrEmptyAddress
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// IsZero reports whether addr is the null address
func IsZero(addr common.Address) bool {
	return addr == (common.Address{})
}

// ParseAddresses parses every entry of raw, failing on the first bad one
func ParseAddresses(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		addr, err := ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
