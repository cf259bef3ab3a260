package vault

import (
	"bytes"
	"errors"
	"testing"
)

func testVault(t *testing.T) *Vault {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	v, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestSealOpenRoundTrip(t *testing.T) {
	v := testVault(t)
	secret := []byte("hunter2")

	box, err := v.Seal(secret)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(box, secret) {
		t.Fatal("sealed box contains the plaintext")
	}

	got, err := v.Open(box)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("Open = %q, want %q", got, secret)
	}
}

func TestSealUsesFreshNonces(t *testing.T) {
	v := testVault(t)
	a, _ := v.Seal([]byte("same"))
	b, _ := v.Seal([]byte("same"))
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same plaintext produced identical boxes")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	v := testVault(t)
	box, _ := v.Seal([]byte("hunter2"))
	box[len(box)-1] ^= 0xff

	if _, err := v.Open(box); !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("err = %v, want ErrOpenFailed", err)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	box, _ := testVault(t).Seal([]byte("hunter2"))
	if _, err := testVault(t).Open(box); !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("err = %v, want ErrOpenFailed", err)
	}
}

func TestOpenRejectsShortBox(t *testing.T) {
	v := testVault(t)
	if _, err := v.Open([]byte("short")); !errors.Is(err, ErrBadBox) {
		t.Fatalf("err = %v, want ErrBadBox", err)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "zz", "deadbeef"} {
		if _, err := New(key); !errors.Is(err, ErrBadKey) {
			t.Fatalf("New(%q) err = %v, want ErrBadKey", key, err)
		}
	}
}
