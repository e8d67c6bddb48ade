package challenge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-Sigroha/kyc/internal/domain"
)

// canonicalPayload is the byte string the HMAC binds: id, nonce, the
// ordered predicate list and the expiry, pipe-separated. Any field change
// invalidates the signature.
func canonicalPayload(id, nonce string, predicates []domain.Predicate, expiresAt time.Time) []byte {
	parts := make([]string, 0, len(predicates))
	for _, p := range predicates {
		parts = append(parts, string(p))
	}

	var b strings.Builder
	b.WriteString(id)
	b.WriteByte('|')
	b.WriteString(nonce)
	b.WriteByte('|')
	b.WriteString(strings.Join(parts, ","))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(expiresAt.Unix(), 10))
	return []byte(b.String())
}

// Sign computes the hex HMAC-SHA256 over the canonical challenge encoding.
func Sign(secret []byte, id, nonce string, predicates []domain.Predicate, expiresAt time.Time) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(canonicalPayload(id, nonce, predicates, expiresAt))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a claimed signature in constant time.
func VerifySignature(secret []byte, claimed string, id, nonce string, predicates []domain.Predicate, expiresAt time.Time) bool {
	expected := Sign(secret, id, nonce, predicates, expiresAt)
	return hmac.Equal([]byte(claimed), []byte(expected))
}
