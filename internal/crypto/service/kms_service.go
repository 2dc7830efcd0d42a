package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	// Register KMS provider drivers for KEK unwrapping.
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService unwraps the KEK when it is stored as a KMS-wrapped ciphertext
// instead of plaintext in the environment.
type KMSService interface {
	// UnwrapKEK decrypts a base64 KEK ciphertext using the KMS key at keyURI
	// and returns the plaintext composite keyset.
	UnwrapKEK(ctx context.Context, keyURI, wrapped string) (string, error)

	// WrapKEK encrypts a plaintext keyset using the KMS key at keyURI and
	// returns the base64 ciphertext suitable for SERVER_KEK.
	WrapKEK(ctx context.Context, keyURI, plaintext string) (string, error)
}

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// UnwrapKEK opens a secrets.Keeper for keyURI (hashivault://, base64key://)
// and decrypts the wrapped KEK.
func (k *kmsService) UnwrapKEK(ctx context.Context, keyURI, wrapped string) (string, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return "", fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return "", fmt.Errorf("wrapped KEK is not valid base64: %w", err)
	}

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to unwrap KEK: %w", err)
	}

	return string(plaintext), nil
}

// WrapKEK opens a secrets.Keeper for keyURI and encrypts the keyset.
func (k *kmsService) WrapKEK(ctx context.Context, keyURI, plaintext string) (string, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return "", fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer keeper.Close()

	ciphertext, err := keeper.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("failed to wrap KEK: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
