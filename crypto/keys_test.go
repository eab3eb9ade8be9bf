package crypto

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

func TestAddressRoundTrip(t *testing.T) {
	var raw [20]byte
	raw[0], raw[19] = 0x42, 0x07
	encoded := FromRaw(raw).String()
	if !strings.HasPrefix(encoded, string(FarmPrefix)+"1") {
		t.Fatalf("unexpected encoding %s", encoded)
	}
	parsed, err := ParseAddress(encoded)
	if err != nil || parsed != raw {
		t.Fatalf("ParseAddress(%s) = %x, %v", encoded, parsed, err)
	}
	if _, err := ParseAddress("farm1notanaddress"); err == nil {
		t.Fatalf("expected error for malformed address")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "wallet.json")
	if err := saveKeystore(path, key, "correct horse", keystore.LightScryptN, keystore.LightScryptP); err != nil {
		t.Fatalf("save keystore: %v", err)
	}
	addr, err := KeystoreAddress(path, "correct horse")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	if addr.String() != key.PubKey().Address().String() {
		t.Fatalf("address mismatch: %s", addr)
	}
	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("expected decrypt failure with wrong passphrase")
	}
	err = saveKeystore(path, key, "again", keystore.LightScryptN, keystore.LightScryptP)
	if !errors.Is(err, ErrKeystoreExists) {
		t.Fatalf("expected ErrKeystoreExists, got %v", err)
	}
}
