package donation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field length limits
const (
	MaxNameLength           = 100
	MaxMessageLength        = 500
	MaxPhoneLength          = 30
	MaxIdempotencyKeyLength = 128
)

// AnonymousName replaces the donor name in public views of anonymous donations
const AnonymousName = "Anonymous"

// PaymentStatus represents the payment state of a donation
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the donor paid
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
	PaymentMethodWallet     PaymentMethod = "wallet"
	PaymentMethodOther      PaymentMethod = "other"
)

// IsValid reports whether m is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodWallet, PaymentMethodOther:
		return true
	}
	return false
}

// Policy holds configurable donation rules
type Policy struct {
	MinAmount decimal.Decimal
}

// DefaultPolicy returns the default donation rules
func DefaultPolicy() Policy {
	return Policy{MinAmount: decimal.NewFromInt(1)}
}

// CreateParams carries the fields supplied by a donor
type CreateParams struct {
	CampaignID      uuid.UUID
	Name            string
	Email           string
	Phone           string
	Amount          decimal.Decimal
	Message         string
	DisplayPublicly bool
	Anonymous       bool
	PaymentMethod   string
	PaymentStatus   string
	IdempotencyKey  string
}

// Donation is an immutable ledger entry. Only its payment status moves,
// and only along the transitions allowed by CanTransitionTo.
type Donation struct {
	shared.BaseAggregateRoot
	TransactionID   string
	CampaignID      uuid.UUID
	Name            string
	Email           string
	Phone           string
	Amount          decimal.Decimal
	Message         string
	DisplayPublicly bool
	Anonymous       bool
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	IdempotencyKey  *string
}

// Validate checks donor fields and amount, reporting every violation at once
func Validate(params CreateParams, policy Policy) error {
	var verrs shared.ValidationErrors

	name := strings.TrimSpace(params.Name)
	if name == "" {
		verrs.Add("name", "Name is required")
	} else if len(name) > MaxNameLength {
		verrs.Add("name", fmt.Sprintf("Name cannot exceed %d characters", MaxNameLength))
	}

	if !shared.IsValidEmail(params.Email) {
		verrs.Add("email", "Please provide a valid email")
	}

	phone := strings.TrimSpace(params.Phone)
	if phone == "" {
		verrs.Add("phone", "Phone number is required")
	} else if len(phone) > MaxPhoneLength {
		verrs.Add("phone", fmt.Sprintf("Phone number cannot exceed %d characters", MaxPhoneLength))
	}

	switch {
	case !params.Amount.IsPositive():
		verrs.Add("amount", "Amount must be greater than 0")
	case params.Amount.LessThan(policy.MinAmount):
		verrs.Add("amount", fmt.Sprintf("Amount must be at least %s", policy.MinAmount.String()))
	case !params.Amount.Equal(params.Amount.Round(2)):
		verrs.Add("amount", "Amount cannot have more than 2 decimal places")
	}

	if len(strings.TrimSpace(params.Message)) > MaxMessageLength {
		verrs.Add("message", fmt.Sprintf("Message cannot exceed %d characters", MaxMessageLength))
	}
	if params.PaymentMethod != "" && !PaymentMethod(params.PaymentMethod).IsValid() {
		verrs.Add("paymentMethod", "Payment method must be one of: card, upi, netbanking, wallet, other")
	}
	if params.PaymentStatus != "" {
		ps := PaymentStatus(params.PaymentStatus)
		if ps != PaymentStatusPending && ps != PaymentStatusCompleted {
			verrs.Add("paymentStatus", "Payment status must be pending or completed")
		}
	}
	if len(params.IdempotencyKey) > MaxIdempotencyKeyLength {
		verrs.Add("idempotencyKey", fmt.Sprintf("Idempotency key cannot exceed %d characters", MaxIdempotencyKeyLength))
	}

	return verrs.Err()
}

// NewDonation validates params and builds a donation with a fresh
// transaction reference.
func NewDonation(params CreateParams, policy Policy, now time.Time) (*Donation, error) {
	if err := Validate(params, policy); err != nil {
		return nil, err
	}
	txnID, err := GenerateTransactionID(now)
	if err != nil {
		return nil, err
	}

	method := PaymentMethod(params.PaymentMethod)
	if method == "" {
		method = PaymentMethodOther
	}
	status := PaymentStatus(params.PaymentStatus)
	if status == "" {
		status = PaymentStatusCompleted
	}

	d := &Donation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TransactionID:     txnID,
		CampaignID:        params.CampaignID,
		Name:              strings.TrimSpace(params.Name),
		Email:             shared.NormalizeEmail(params.Email),
		Phone:             strings.TrimSpace(params.Phone),
		Amount:            params.Amount,
		Message:           strings.TrimSpace(params.Message),
		DisplayPublicly:   params.DisplayPublicly,
		Anonymous:         params.Anonymous,
		PaymentMethod:     method,
		PaymentStatus:     status,
	}
	if key := strings.TrimSpace(params.IdempotencyKey); key != "" {
		d.IdempotencyKey = &key
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	return d, nil
}

// Counts reports whether the donation contributes to campaign aggregates
func (d *Donation) Counts() bool {
	return d.PaymentStatus == PaymentStatusCompleted
}

// PublicName returns the name shown on public pages
func (d *Donation) PublicName() string {
	if d.Anonymous {
		return AnonymousName
	}
	return d.Name
}

// CanTransitionTo checks a payment status change. Each legal transition
// happens at most once because none of them can be reversed.
func (d *Donation) CanTransitionTo(to PaymentStatus) error {
	if !to.IsValid() {
		return shared.NewValidationError([]shared.FieldError{{
			Field:   "paymentStatus",
			Message: "Payment status must be one of: pending, completed, failed, refunded",
		}})
	}
	switch {
	case d.PaymentStatus == PaymentStatusPending && (to == PaymentStatusCompleted || to == PaymentStatusFailed):
		return nil
	case d.PaymentStatus == PaymentStatusCompleted && to == PaymentStatusRefunded:
		return nil
	}
	return shared.NewInvalidTransitionError(
		fmt.Sprintf("Payment status cannot change from %s to %s", d.PaymentStatus, to))
}

// AggregateDelta describes the effect of a payment transition on the
// owning campaign: +1 applies the amount, -1 reverses it, 0 leaves it alone.
func AggregateDelta(from, to PaymentStatus) int {
	switch {
	case from != PaymentStatusCompleted && to == PaymentStatusCompleted:
		return 1
	case from == PaymentStatusCompleted && to != PaymentStatusCompleted:
		return -1
	}
	return 0
}

const txnAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateTransactionID returns TXN followed by the unix millis of now and
// nine random uppercase alphanumerics.
func GenerateTransactionID(now time.Time) (string, error) {
	var sb strings.Builder
	sb.WriteString("TXN")
	sb.WriteString(fmt.Sprintf("%d", now.UnixMilli()))
	max := big.NewInt(int64(len(txnAlphabet)))
	for i := 0; i < 9; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate transaction id: %w", err)
		}
		sb.WriteByte(txnAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
