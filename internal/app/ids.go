package app

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	upperAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	lowerBase36       = "0123456789abcdefghijklmnopqrstuvwxyz"
)

func newID() string {
	return uuid.NewString()
}

// NewBookingNumber formats BK<unix millis><5 random uppercase alphanumerics>.
func NewBookingNumber(now time.Time) string {
	return "BK" + strconv.FormatInt(now.UnixMilli(), 10) + randomString(upperAlphanumeric, 5)
}

func newCashOrderRef(now time.Time) string {
	return "order_CASH" + strconv.FormatInt(now.UnixMilli(), 10) + randomString(lowerBase36, 9)
}

func newCashTransactionID(now time.Time) string {
	return fmt.Sprintf("CASH-%d-%04d", now.UnixMilli(), rand.IntN(10000))
}

func newHoldCorrelationID() string {
	return "hold_" + newID()
}

func randomString(alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}
