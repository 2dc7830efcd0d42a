package commands

import (
	"context"
	"fmt"
	"io"

	cryptoService "github.com/allisson/flexauth/internal/crypto/service"
)

// RunCreateKek generates a new composite keyset and prints it. With a KMS
// key URI the keyset is additionally wrapped and the ciphertext printed; the
// ciphertext form is what SERVER_KEK should hold when KMS_KEY_URI is set.
func RunCreateKek(ctx context.Context, kmsKeyURI string, out io.Writer) error {
	cipher := cryptoService.NewGCMCipher()

	keyset, err := cipher.GenerateKeyset()
	if err != nil {
		return fmt.Errorf("failed to generate KEK: %w", err)
	}

	if kmsKeyURI == "" {
		fmt.Fprintf(out, "SERVER_KEK=%s\n", keyset)
		return nil
	}

	wrapped, err := cryptoService.NewKMSService().WrapKEK(ctx, kmsKeyURI, keyset)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "SERVER_KEK=%s\n", wrapped)
	fmt.Fprintf(out, "KMS_KEY_URI=%s\n", kmsKeyURI)
	return nil
}
