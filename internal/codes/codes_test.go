package codes

import (
	"strings"
	"testing"
)

func TestShareCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := ShareCode()
		if len(code) != ShareCodeLength {
			t.Fatalf("len(%q) = %d", code, len(code))
		}
		if !ValidShareCode(code) {
			t.Fatalf("generated code %q fails validation", code)
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Errorf("only %d distinct codes in 100 draws", len(seen))
	}
}

func TestAlphabetExcludesAmbiguous(t *testing.T) {
	for _, c := range "0O1Il" {
		if strings.ContainsRune(alphabet, c) {
			t.Errorf("ambiguous character %q in alphabet", c)
		}
	}
}

func TestUserIDAndAPIKey(t *testing.T) {
	uid := UserID()
	if !strings.HasPrefix(uid, "usr_") || len(uid) != len("usr_")+userIDRandLen {
		t.Errorf("user id = %q", uid)
	}
	key := APIKey()
	if !strings.HasPrefix(key, "ll_") || len(key) != len("ll_")+apiKeyRandLen {
		t.Errorf("api key = %q", key)
	}
}

func TestValidShareCode(t *testing.T) {
	cases := map[string]bool{
		"abcdef": true,
		"AB23yz": true,
		"abc":    false,
		"abcdefg": false,
		"abc d!": false,
		"abcde0": false,
	}
	for code, want := range cases {
		if got := ValidShareCode(code); got != want {
			t.Errorf("ValidShareCode(%q) = %v, want %v", code, got, want)
		}
	}
}
