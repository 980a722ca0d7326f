package handlers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/fleetvoice/fleetvoice/pkg/core"
)

// IssuedCard is the minimal card surface the voice flow reads back to
// the caller: the last four digits and an MM/YY expiration.
type IssuedCard struct {
	Last4      string
	Expiration string
}

// CardIssuer produces single-use virtual cards for merchant payments.
type CardIssuer interface {
	Issue(ctx context.Context) (IssuedCard, error)
}

// SyntheticIssuer fabricates card details locally. It backs deployments
// without an issuing processor configured, and tests.
type SyntheticIssuer struct {
	Now func() time.Time
}

func (s SyntheticIssuer) Issue(ctx context.Context) (IssuedCard, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return IssuedCard{
		Last4:      fmt.Sprintf("%04d", 1000+rand.IntN(9000)),
		Expiration: fmt.Sprintf("%02d/%02d", 1+rand.IntN(12), (now().Year()+3)%100),
	}, nil
}

// StripeIssuer creates real virtual cards through Stripe Issuing.
type StripeIssuer struct {
	Client     *stripe.Client
	Cardholder string
}

func (s StripeIssuer) Issue(ctx context.Context) (IssuedCard, error) {
	if s.Client == nil || s.Cardholder == "" {
		return IssuedCard{}, core.NewToolError("stripe issuer is not configured")
	}

	card, err := s.Client.V1IssuingCards.Create(ctx, &stripe.IssuingCardCreateParams{
		Cardholder: stripe.String(s.Cardholder),
		Currency:   stripe.String("usd"),
		Type:       stripe.String(string(stripe.IssuingCardTypeVirtual)),
		Status:     stripe.String(string(stripe.IssuingCardStatusActive)),
	})
	if err != nil {
		return IssuedCard{}, fmt.Errorf("stripe issuing card create: %w", err)
	}

	return IssuedCard{
		Last4:      card.Last4,
		Expiration: fmt.Sprintf("%02d/%02d", card.ExpMonth, card.ExpYear%100),
	}, nil
}
