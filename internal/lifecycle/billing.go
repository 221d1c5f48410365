// Package lifecycle holds the client lifecycle state machines that the
// legacy views each recomputed inline: payment classification, service
// progress, deadline priority and the lead pipeline. Everything here is
// pure; callers pass "today" explicitly so results are reproducible.
package lifecycle

import (
	"math"
	"time"
)

// PaymentStatus is the billing bucket a ledger row lives in.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	// PaymentDues is the catch-all: overdue rows, overpayments, and the
	// overdue-partial case all land here.
	PaymentDues PaymentStatus = "dues"
)

// amountTolerance treats paid and total as equal within a paisa.
const amountTolerance = 0.01

// ClassifyPayment buckets a billing row from the paid/total/deadline
// relation. The decision table is total: exactly one status comes back.
//
// A partially paid row whose deadline has passed falls through to dues
// rather than a distinct overdue-partial bucket; that matches the behavior
// the firm has operated with, so it is kept.
func ClassifyPayment(paid, total float64, deadline, today time.Time) PaymentStatus {
	if paid == 0 && total == 0 {
		return PaymentUnpaid
	}
	if paid > 0 && paid < total && deadline.After(today) {
		return PaymentPartial
	}
	if math.Abs(paid-total) < amountTolerance {
		return PaymentPaid
	}
	return PaymentDues
}

// PaymentProgress is the payment completion percent, rounded to two
// decimals and capped at 100. A zero total yields 0 rather than NaN.
func PaymentProgress(paid, total float64) float64 {
	if total <= 0 {
		return 0
	}
	pct := math.Round(paid/total*100*100) / 100
	return math.Min(100, pct)
}

// Due is the outstanding amount, floored at zero.
func Due(paid, total float64) float64 {
	d := total - paid
	if d < 0 {
		return 0
	}
	return math.Round(d*100) / 100
}
