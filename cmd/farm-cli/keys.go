package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"farmledger/cmd/internal/passphrase"
	"farmledger/crypto"
	"farmledger/rpc"
)

const (
	keystorePassEnv = "FARM_KEYSTORE_PASS"
	jwtSecretEnv    = "FARM_JWT_SECRET"
	jwtIssuerEnv    = "FARM_JWT_ISSUER"
)

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("keystore", "wallet.json", "path of the keystore file to create")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	pass, err := passphrase.NewSource(keystorePassEnv).WithPrompt("Choose keystore passphrase: ").Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(*path, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: save keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Keystore written to %s\n", *path)
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address().String())
	return 0
}

func loadKeystoreAddress(path string) ([20]byte, error) {
	pass, err := passphrase.NewSource(keystorePassEnv).Get()
	if err != nil {
		return [20]byte{}, err
	}
	addr, err := crypto.KeystoreAddress(path, pass)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("keystore", "wallet.json", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := loadKeystoreAddress(*path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, crypto.FromRaw(addr).String())
	return 0
}

// runTokenFor signs a bearer token with the node's shared secret. Only
// operators holding FARM_JWT_SECRET can do this.
func runTokenFor(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token-for", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keystorePath := fs.String("keystore", "", "keystore whose address becomes the subject")
	address := fs.String("address", "", "bech32 subject address")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	var subject [20]byte
	var err error
	switch {
	case strings.TrimSpace(*address) != "":
		subject, err = crypto.ParseAddress(*address)
	case strings.TrimSpace(*keystorePath) != "":
		subject, err = loadKeystoreAddress(*keystorePath)
	default:
		err = fmt.Errorf("--keystore or --address is required")
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	token, err := rpc.IssueToken(os.Getenv(jwtSecretEnv), os.Getenv(jwtIssuerEnv), subject, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v (set %s)\n", err, jwtSecretEnv)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
