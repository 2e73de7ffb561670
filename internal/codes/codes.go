// Package codes generates share codes and API credentials.
package codes

import (
	"crypto/rand"
	"math/big"
)

// Alphabet excludes visually ambiguous characters (0/O, 1/I/l).
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

const (
	// ShareCodeLength is the length of download/md-file share codes.
	ShareCodeLength = 6

	userIDPrefix  = "usr_"
	apiKeyPrefix  = "ll_"
	userIDRandLen = 12
	apiKeyRandLen = 32
)

func randomString(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken;
			// nothing sensible to do but stop.
			panic(err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out)
}

// ShareCode returns a new 6-character share code.
func ShareCode() string {
	return randomString(ShareCodeLength)
}

// UserID returns a new user identifier of the form usr_xxxxxxxxxxxx.
func UserID() string {
	return userIDPrefix + randomString(userIDRandLen)
}

// APIKey returns a new API key of the form ll_<32 chars>.
func APIKey() string {
	return apiKeyPrefix + randomString(apiKeyRandLen)
}

// ValidShareCode reports whether s has the shape of a share code.
func ValidShareCode(s string) bool {
	if len(s) != ShareCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		found := false
		for j := 0; j < len(alphabet); j++ {
			if s[i] == alphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
