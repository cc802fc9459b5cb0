package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

// ErrBadSignInput marks signing input the gateway contract cannot accept.
var ErrBadSignInput = errors.New("gateway: cannot sign empty parameter set or empty key")

// ChecksumField is the form/body field carrying the signature, kept out of
// the signed parameter set itself.
const ChecksumField = "CHECKSUMHASH"

// canonicalize flattens the parameters into a transport-order-independent
// byte string: keys sorted, each pair percent-escaped and joined with '&'.
func canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// Sign computes the keyed checksum the gateway expects: HMAC-SHA256 over the
// canonicalized parameter set, hex encoded.
func Sign(params map[string]string, key string) (string, error) {
	if len(params) == 0 || key == "" {
		return "", ErrBadSignInput
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the checksum and compares in constant time. Any signing
// failure verifies as false; callers never learn which check failed.
func Verify(params map[string]string, key, supplied string) bool {
	expected, err := Sign(params, key)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(supplied))
}
