// Package poolkey defines pool identity: one pool per unordered token pair.
package poolkey

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrIdenticalTokens = errors.New("identical pool tokens")
	ErrUnorderedPair   = errors.New("pool tokens are not in canonical order")
)

// Key is the canonical identity of a pool. TokenA sorts strictly before
// TokenB and ID is keccak256(TokenA || TokenB).
type Key struct {
	TokenA common.Address `json:"token_a"`
	TokenB common.Address `json:"token_b"`
	ID     common.Hash    `json:"id"`
}

// Compare orders token identifiers bytewise.
func Compare(x, y common.Address) int {
	return bytes.Compare(x.Bytes(), y.Bytes())
}

// Ordered reports whether a sorts strictly before b.
func Ordered(a, b common.Address) bool {
	return Compare(a, b) < 0
}

// Canonicalize sorts an unordered pair and derives its pool id.
func Canonicalize(x, y common.Address) (Key, error) {
	switch Compare(x, y) {
	case 0:
		return Key{}, fmt.Errorf("%w: %s", ErrIdenticalTokens, x.Hex())
	case 1:
		x, y = y, x
	}
	return Key{TokenA: x, TokenB: y, ID: poolID(x, y)}, nil
}

// Validate re-checks a key received from elsewhere.
func (k Key) Validate() error {
	if !Ordered(k.TokenA, k.TokenB) {
		if k.TokenA == k.TokenB {
			return fmt.Errorf("%w: %s", ErrIdenticalTokens, k.TokenA.Hex())
		}
		return fmt.Errorf("%w: %s >= %s", ErrUnorderedPair, k.TokenA.Hex(), k.TokenB.Hex())
	}
	if want := poolID(k.TokenA, k.TokenB); k.ID != want {
		return fmt.Errorf("pool id mismatch: have %s want %s", k.ID.Hex(), want.Hex())
	}
	return nil
}

// Contains reports whether token is one of the pool's two tokens.
func (k Key) Contains(token common.Address) bool {
	return token == k.TokenA || token == k.TokenB
}

func (k Key) String() string {
	return k.ID.Hex()
}

func poolID(a, b common.Address) common.Hash {
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes())
}

// ParseToken converts a hex string into a token identifier.
func ParseToken(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid token address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParsePair parses two token identifiers in either order and canonicalizes
// them.
func ParsePair(x, y string) (Key, error) {
	tokenX, err := ParseToken(x)
	if err != nil {
		return Key{}, err
	}
	tokenY, err := ParseToken(y)
	if err != nil {
		return Key{}, err
	}
	return Canonicalize(tokenX, tokenY)
}
