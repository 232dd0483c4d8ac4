package binary

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Verifier handles cryptographic verification of downloaded archives
type Verifier struct{}

// NewVerifier creates a new verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifySHA256 checks that the file at path has the given hex SHA-256 digest.
// The comparison is case-insensitive.
func (v *Verifier) VerifySHA256(path, expected string) error {
	expected = strings.TrimSpace(expected)
	if _, err := hex.DecodeString(expected); err != nil || len(expected) != sha256.Size*2 {
		return &VerificationError{Path: path, Method: VerificationSHA256, Err: fmt.Errorf("malformed digest %q", expected)}
	}

	actual, err := calculateSHA256(path)
	if err != nil {
		return &VerificationError{Path: path, Method: VerificationSHA256, Err: fmt.Errorf("calculate checksum: %w", err)}
	}

	if !strings.EqualFold(actual, expected) {
		return &VerificationError{
			Path:   path,
			Method: VerificationSHA256,
			Err:    fmt.Errorf("checksum mismatch: actual %s, expected %s", actual, expected),
		}
	}

	return nil
}

// VerifySignature checks a detached OpenPGP signature of path against the
// keys in keyringPath. Signatures and keyrings may be armored or binary.
func (v *Verifier) VerifySignature(path, signaturePath, keyringPath string) error {
	fail := func(err error) error {
		return &VerificationError{Path: path, Method: VerificationGPG, Err: err}
	}

	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return fail(err)
	}

	signed, err := os.Open(path)
	if err != nil {
		return fail(fmt.Errorf("open file: %w", err))
	}
	defer signed.Close()

	sig, err := os.ReadFile(signaturePath)
	if err != nil {
		return fail(fmt.Errorf("open signature: %w", err))
	}

	// Try armored first
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, signed, bytes.NewReader(sig), nil)
	if err != nil {
		if _, seekErr := signed.Seek(0, io.SeekStart); seekErr != nil {
			return fail(fmt.Errorf("rewind file: %w", seekErr))
		}
		_, err = openpgp.CheckDetachedSignature(keyring, signed, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return fail(fmt.Errorf("verify signature: %w", err))
	}

	return nil
}

// loadKeyring loads an armored or binary OpenPGP keyring
func loadKeyring(keyringPath string) (openpgp.EntityList, error) {
	if keyringPath == "" {
		return nil, errors.New("no keyring configured")
	}

	data, err := os.ReadFile(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
