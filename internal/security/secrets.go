package security

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awnumar/memguard"
)

// MinSecretLen is the minimum signing secret length enforced in production.
const MinSecretLen = 32

const (
	filePrefix   = "file:"
	base64Prefix = "base64:"
)

// Secrets holds the access and refresh signing keys in encrypted memory enclaves.
// The two keys are always distinct so neither can mint the other token type.
type Secrets struct {
	access  *memguard.Enclave
	refresh *memguard.Enclave
}

// NewSecrets seals access and refresh into enclaves. Both must be non-empty and differ.
// The input slices are wiped.
func NewSecrets(access, refresh []byte) (*Secrets, error) {
	if len(access) == 0 || len(refresh) == 0 {
		return nil, errors.New("security: signing secrets must not be empty")
	}
	if len(access) == len(refresh) && subtle.ConstantTimeCompare(access, refresh) == 1 {
		return nil, errors.New("security: access and refresh secrets must differ")
	}
	return &Secrets{
		access:  memguard.NewEnclave(access),
		refresh: memguard.NewEnclave(refresh),
	}, nil
}

// RandomSecrets returns per-process random secrets. Tokens do not survive a restart;
// only for development.
func RandomSecrets() *Secrets {
	return &Secrets{
		access:  memguard.NewEnclaveRandom(MinSecretLen),
		refresh: memguard.NewEnclaveRandom(MinSecretLen),
	}
}

func (s *Secrets) enclave(t TokenType) (*memguard.Enclave, error) {
	switch t {
	case TokenTypeAccess:
		return s.access, nil
	case TokenTypeRefresh:
		return s.refresh, nil
	}
	return nil, fmt.Errorf("security: unknown token type %q", t)
}

// LoadSecret resolves a configured secret: "file:<path>" reads the file (trailing
// newline trimmed), "base64:<data>" decodes, anything else is taken literally.
func LoadSecret(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return nil, nil
	case strings.HasPrefix(value, filePrefix):
		b, err := os.ReadFile(strings.TrimPrefix(value, filePrefix))
		if err != nil {
			return nil, fmt.Errorf("read secret file: %w", err)
		}
		return []byte(strings.TrimRight(string(b), "\r\n")), nil
	case strings.HasPrefix(value, base64Prefix):
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, base64Prefix))
		if err != nil {
			return nil, fmt.Errorf("decode base64 secret: %w", err)
		}
		return b, nil
	default:
		return []byte(value), nil
	}
}

// CheckSecretLength returns an error when secret is shorter than min bytes.
func CheckSecretLength(name string, secret []byte, min int) error {
	if len(secret) < min {
		return fmt.Errorf("security: %s must be at least %d bytes", name, min)
	}
	return nil
}
