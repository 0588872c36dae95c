package app

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// RandomCode returns a six digit join code in [100000, 999999].
func RandomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is unavailable.
		panic(err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10)
}

// ValidCode reports whether code has the shape of a join code.
func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
