package commands

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
)

// rsaKeyBits is the modulus size of the token signing key.
const rsaKeyBits = 2048

// RunCreateKeypair generates the RSA private key used to sign id and refresh
// tokens and writes it PEM-encoded to path. The public key is derived from
// the private key at runtime, so no separate file is written.
func RunCreateKeypair(path string, out io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing key at %s", path)
	}

	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}

	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	fmt.Fprintf(out, "private key written to %s\n", path)
	return nil
}
