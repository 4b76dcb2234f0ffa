package archivechain

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// fingerprintIterations and fingerprintKeyLen size the PBKDF2 derivation
// used to remember a last-used password without ever storing it raw
// (§4.B "Passwords"; SPEC_FULL's DOMAIN STACK "Password key
// fingerprinting"). These are deliberately modest since the fingerprint
// is a cache key, not a credential at rest.
const (
	fingerprintIterations = 10000
	fingerprintKeyLen     = 32
)

// Fingerprint derives a salted, one-way fingerprint for password,
// scoped to archivePath so the same password used on two different
// archives produces two different fingerprints. It is safe to persist
// or log the fingerprint; the password itself never leaves this call.
func Fingerprint(archivePath, password string) string {
	salt := sha256.Sum256([]byte(archivePath))
	key := pbkdf2.Key([]byte(password), salt[:], fingerprintIterations, fingerprintKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// PasswordCache remembers, per archive path, the fingerprint of the
// password that last opened it successfully. It never stores the
// password in plaintext: only Remember's caller ever sees it, and only
// the derived fingerprint is retained. Recall lets the caller try the
// previously-successful password again without re-prompting, by
// comparing a candidate's fingerprint against the remembered one
// rather than storing the candidate itself.
type PasswordCache struct {
	fingerprints map[string]string
}

// NewPasswordCache creates an empty PasswordCache.
func NewPasswordCache() *PasswordCache {
	return &PasswordCache{fingerprints: make(map[string]string)}
}

// Remember records that password opened archivePath successfully.
func (c *PasswordCache) Remember(archivePath, password string) {
	c.fingerprints[archivePath] = Fingerprint(archivePath, password)
}

// Matches reports whether password's fingerprint matches the one
// remembered for archivePath, i.e. whether it is worth trying again
// before prompting the user for a new one.
func (c *PasswordCache) Matches(archivePath, password string) bool {
	remembered, ok := c.fingerprints[archivePath]
	if !ok {
		return false
	}
	return remembered == Fingerprint(archivePath, password)
}

// Forget discards the remembered fingerprint for archivePath, e.g.
// after a WrongPassword error invalidates it.
func (c *PasswordCache) Forget(archivePath string) {
	delete(c.fingerprints, archivePath)
}
