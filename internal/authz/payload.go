// Package authz mints and checks signed, time-bounded activation claims.
package authz

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/remoteled/platform/internal/domain"
)

// DomainPrefix separates activation signatures from anything else signed with the same key.
const DomainPrefix = "RemoteLED:Authorization:"

var ErrMalformedPayload = errors.New("malformed authorization payload")

// Fields renders the payload as the key/value set that gets signed.
func Fields(p domain.AuthorizationPayload) map[string]string {
	return map[string]string{
		"deviceId": p.DeviceID,
		"orderId":  p.OrderID,
		"type":     string(p.ServiceType),
		"seconds":  strconv.Itoa(p.Seconds),
		"nonce":    p.Nonce,
		"exp":      strconv.FormatInt(p.Exp, 10),
	}
}

// Canonicalize joins fields as key=value pairs sorted by key and separated by '&'.
func Canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// CanonicalString is the canonical serialization of p.
func CanonicalString(p domain.AuthorizationPayload) string {
	return Canonicalize(Fields(p))
}

// SigningMessage returns the exact bytes that are hashed and signed for p.
func SigningMessage(p domain.AuthorizationPayload) []byte {
	return []byte(DomainPrefix + CanonicalString(p))
}

// ParsePayload decodes a JSON payload, regardless of key order, and checks
// that every signed field is present.
func ParsePayload(data []byte) (domain.AuthorizationPayload, error) {
	var raw struct {
		DeviceID    *string `json:"deviceId"`
		OrderID     *string `json:"orderId"`
		ServiceType *string `json:"type"`
		Seconds     *int    `json:"seconds"`
		Nonce       *string `json:"nonce"`
		Exp         *int64  `json:"exp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.AuthorizationPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if raw.DeviceID == nil || raw.OrderID == nil || raw.ServiceType == nil ||
		raw.Seconds == nil || raw.Nonce == nil || raw.Exp == nil {
		return domain.AuthorizationPayload{}, fmt.Errorf("%w: missing field", ErrMalformedPayload)
	}
	return domain.AuthorizationPayload{
		DeviceID:    *raw.DeviceID,
		OrderID:     *raw.OrderID,
		ServiceType: domain.ServiceType(*raw.ServiceType),
		Seconds:     *raw.Seconds,
		Nonce:       *raw.Nonce,
		Exp:         *raw.Exp,
	}, nil
}
