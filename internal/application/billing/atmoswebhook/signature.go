package atmoswebhook

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
)

// Sign computes the callback signature: the hex SHA-256 digest of the
// store ID, invoice ID, amount and shared secret concatenated in order.
func Sign(storeID, invoiceID string, amount int64, secret string) string {
	h := sha256.New()
	h.Write([]byte(storeID))
	h.Write([]byte(invoiceID))
	h.Write([]byte(strconv.FormatInt(amount, 10)))
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a presented signature in constant time.
func VerifySignature(storeID, invoiceID string, amount int64, secret, presented string) bool {
	expected := Sign(storeID, invoiceID, amount, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
