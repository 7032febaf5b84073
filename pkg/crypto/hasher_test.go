package crypto

import "testing"

func TestHashAndVerify(t *testing.T) {
	hashers := map[string]Hasher{
		"bcrypt": NewBcryptHasher(BcryptOptions{Cost: 4}),
		"pbkdf2": NewPBKDF2Hasher(PBKDF2Options{
			Iterations: 1000,
			SaltBytes:  16,
			KeyBytes:   32,
		}),
	}

	for name, hasher := range hashers {
		t.Run(name, func(t *testing.T) {
			encoded, err := hasher.Hash("secret-pass")
			if err != nil {
				t.Fatalf("hash failed: %v", err)
			}

			ok, err := hasher.Verify("secret-pass", encoded)
			if err != nil {
				t.Fatalf("verify failed: %v", err)
			}
			if !ok {
				t.Fatal("expected hash verification to succeed")
			}

			ok, err = hasher.Verify("wrong-pass", encoded)
			if err != nil {
				t.Fatalf("verify wrong password failed with error: %v", err)
			}
			if ok {
				t.Fatal("expected hash verification to fail for wrong password")
			}
		})
	}
}

func TestVerifyInvalidHash(t *testing.T) {
	hasher := NewPBKDF2Hasher(PBKDF2Options{
		Iterations: 1000,
		SaltBytes:  16,
		KeyBytes:   32,
	})

	ok, err := hasher.Verify("secret-pass", "invalid")
	if err == nil {
		t.Fatal("expected invalid hash error")
	}
	if ok {
		t.Fatal("expected verification to fail")
	}
}

func TestEmptyPasswordRejected(t *testing.T) {
	hasher := NewBcryptHasher(BcryptOptions{Cost: 4})

	if _, err := hasher.Hash(""); err == nil {
		t.Fatal("expected empty password to be rejected")
	}
	if _, err := hasher.Verify("", "hash"); err == nil {
		t.Fatal("expected empty password to be rejected on verify")
	}
}
