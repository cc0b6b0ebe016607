package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	flatServiceFee      = 100
	serviceFeeThreshold = 1000
	serviceFeeRate      = 0.10
	refundRate          = 0.95
	defaultTxRefPrefix  = "ORD"
)

// ServiceFee is a flat 100 below 1000 and 10% (rounded) from 1000 up.
func ServiceFee(price float64) float64 {
	if price < serviceFeeThreshold {
		return flatServiceFee
	}
	return math.Round(price * serviceFeeRate)
}

// RefundAmount is what a cancelled buyer gets back: 95% of the base price,
// rounded to cents. The service fee is not refunded.
func RefundAmount(price float64) float64 {
	return math.Round(price*refundRate*100) / 100
}

// GenerateTxRef builds "<prefix>-<unix millis>-<6 random uppercase chars>".
func GenerateTxRef(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = defaultTxRefPrefix
	}
	entropy := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), entropy)
}
