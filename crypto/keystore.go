package crypto

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

// ErrKeystoreExists is returned when SaveToKeystore would replace a key file.
var ErrKeystoreExists = errors.New("crypto: keystore file already exists")

// SaveToKeystore encrypts key into a v3 keystore file at path. Existing files
// are never overwritten. Parent directories are created with 0700.
func SaveToKeystore(path string, key *PrivateKey, passphrase string) error {
	return saveKeystore(path, key, passphrase, keystore.StandardScryptN, keystore.StandardScryptP)
}

func saveKeystore(path string, key *PrivateKey, passphrase string, scryptN, scryptP int) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty keystore path")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrKeystoreExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// The go-ethereum keystore names files itself; write into a scratch
	// directory and move the single result into place.
	tmpDir, err := os.MkdirTemp(dir, "keystore-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	ks := keystore.NewKeyStore(tmpDir, scryptN, scryptP)
	if _, err := ks.ImportECDSA(key.PrivateKey, passphrase); err != nil {
		return err
	}
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return errors.New("crypto: failed to create keystore file")
	}
	if err := os.Rename(filepath.Join(tmpDir, entries[0].Name()), path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// LoadFromKeystore decrypts the v3 keystore file at path.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt %s: %w", path, err)
	}
	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}

// KeystoreAddress decrypts the keystore at path and returns its farm address.
func KeystoreAddress(path, passphrase string) (Address, error) {
	key, err := LoadFromKeystore(path, passphrase)
	if err != nil {
		return Address{}, err
	}
	return key.PubKey().Address(), nil
}
