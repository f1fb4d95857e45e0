package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 = "sha256"
	HashAlgoBLAKE3 = "blake3"
)

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
// Supported algorithms: "sha256" and "blake3".
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoSHA256:
		return hashBytesSha256(data), nil
	case HashAlgoBLAKE3:
		return BLAKE3Hex(data), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// HashFile streams the file at path through the specified algorithm.
func HashFile(path string, algo HashAlgo) (string, error) {
	var h io.Writer
	var sum func() []byte
	switch algo {
	case HashAlgoSHA256:
		s := sha256.New()
		h, sum = s, func() []byte { return s.Sum(nil) }
	case HashAlgoBLAKE3:
		b := blake3.New(32, nil)
		h, sum = b, func() []byte { return b.Sum(nil) }
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum()), nil
}

// URLIdentity returns the name-based (version 3) UUID of rawURL in the URL
// namespace. The raw string is hashed as given, so two spellings of the same
// resource get two identities.
func URLIdentity(rawURL string) string {
	return uuid.NewMD5(uuid.NameSpaceURL, []byte(rawURL)).String()
}

func hashBytesSha256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// BLAKE3Hex is HashBytes with blake3, for callers that never pick the algorithm.
func BLAKE3Hex(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
