package session

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codeLength = 6
	// No 0/O or 1/I, so codes survive being read aloud or typed from a screen.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func generateSessionCode() string {
	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("session: crypto/rand unavailable: " + err.Error())
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code)
}

// NormalizeCode trims and upper-cases a code typed by a participant.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the shape of a generated session code.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
