package almond

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// MIILength is the digit count of generated correlation identifiers.
// The hub accepts 16 to 32 decimal digits; 24 matches the width its
// own mobile clients use.
const MIILength = 24

// miiFloor is 10^(MIILength-1), the smallest MIILength-digit number.
var miiFloor = new(big.Int).Exp(big.NewInt(10), big.NewInt(MIILength-1), nil)

// miiSpan is 9*10^(MIILength-1), the count of MIILength-digit numbers.
var miiSpan = new(big.Int).Mul(big.NewInt(9), miiFloor)

// generateMII returns a uniformly random MIILength-digit decimal
// string. The first digit is never zero, so the identifier round-trips
// through firmwares that echo it back as a bare number.
func generateMII() (string, error) {
	n, err := rand.Int(rand.Reader, miiSpan)
	if err != nil {
		return "", fmt.Errorf("almond: generate request id: %w", err)
	}
	return n.Add(n, miiFloor).String(), nil
}
