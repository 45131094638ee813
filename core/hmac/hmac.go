// Package hmac signs and validates request bodies with HMAC-SHA256.
//
// Signatures take the form "<version>=<hex digest>", for example "v1=5d41...".
package hmac

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// Version is the only signature scheme currently issued
const Version = "v1"

var (
	ErrSigCheck          = errors.New("payload signature check failed")
	ErrSigMissing        = errors.New("signature is missing")
	errAllowedVerMissing = errors.New("allowed version is missing")
	errSigParse          = errors.New("signature parsing failed")
	errSigVer            = errors.New("signature version invalid")
	errSigDecode         = errors.New("signature decoding failed")
)

// Sign returns the signature of payload for the given version
func Sign(version string, payload, secretToken []byte) string {
	return version + "=" + hex.EncodeToString(genMAC(payload, secretToken, hashFor(version)))
}

// ValidateSignature validates the signature for the given payload. The
// version prefix of the signature must match allowedVersion.
func ValidateSignature(allowedVersion string, signature string, payload, secretToken []byte) error {
	messageMAC, hashFunc, err := messageMAC(allowedVersion, signature)
	if err != nil {
		return err
	}
	if !checkMAC(payload, messageMAC, secretToken, hashFunc) {
		return ErrSigCheck
	}

	return nil
}

// messageMAC returns the hex-decoded HMAC tag from the signature and its
// corresponding hash function.
func messageMAC(allowedVersion string, signature string) ([]byte, func() hash.Hash, error) {
	if signature == "" {
		return nil, nil, ErrSigMissing
	}
	if allowedVersion == "" {
		return nil, nil, errAllowedVerMissing
	}
	sigParts := strings.SplitN(signature, "=", 2)
	if len(sigParts) != 2 {
		return nil, nil, fmt.Errorf("%w: %q", errSigParse, signature)
	}

	if sigParts[0] != allowedVersion {
		return nil, nil, fmt.Errorf("%w: %q", errSigVer, sigParts[0])
	}

	buf, err := hex.DecodeString(sigParts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w %q: %v", errSigDecode, signature, err)
	}

	return buf, hashFor(sigParts[0]), nil
}

func hashFor(version string) func() hash.Hash {
	switch version {
	case Version:
		fallthrough
	default:
		return sha256.New
	}
}

// genMAC generates the HMAC signature for a message provided the secret key
// and hashFunc.
func genMAC(message, key []byte, hashFunc func() hash.Hash) []byte {
	mac := hmac.New(hashFunc, key)
	mac.Write(message)

	return mac.Sum(nil)
}

// checkMAC reports whether messageMAC is a valid HMAC tag for message.
func checkMAC(message, messageMAC, key []byte, hashFunc func() hash.Hash) bool {
	expectedMAC := genMAC(message, key, hashFunc)

	return hmac.Equal(messageMAC, expectedMAC)
}
