package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderNumberSuffix   = 6
)

// OrderNumberFunc produces a customer-facing order number for the given time.
type OrderNumberFunc func(now time.Time) (string, error)

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXX where the date is taken in UTC
// and the suffix is six random base-36 characters.
func NewOrderNumber(now time.Time) (string, error) {
	suffix := make([]byte, orderNumberSuffix)
	base := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix), nil
}
