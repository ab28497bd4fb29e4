package stripe

import (
	"context"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client is the real Stripe-backed Gateway. One configured handle per
// process; the API key is installed globally at construction.
type Client struct{}

var _ Gateway = (*Client)(nil)

func NewClient(secretKey string) *Client {
	stripeapi.Key = secretKey
	return &Client{}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, items []CheckoutItem, customerEmail, successURL, cancelURL string, metadata map[string]string) (*CheckoutSession, error) {
	lineItems := make([]*stripeapi.CheckoutSessionLineItemParams, 0, len(items))
	for _, it := range items {
		lineItems = append(lineItems, &stripeapi.CheckoutSessionLineItemParams{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency: stripeapi.String(string(stripeapi.CurrencyUSD)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripeapi.String(it.Name),
					Description: stripeapi.String(it.Description),
					Images:      stripeapi.StringSlice(it.Images),
				},
				UnitAmount: stripeapi.Int64(MinorUnits(it.Price)),
			},
			Quantity: stripeapi.Int64(it.Quantity),
		})
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		CustomerEmail:      stripeapi.String(customerEmail),
		SuccessURL:         stripeapi.String(successURL),
		CancelURL:          stripeapi.String(cancelURL),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	s, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return sessionFromAPI(s), nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(MinorUnits(amount)),
		Currency: stripeapi.String(currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (c *Client) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, err
	}
	return sessionFromAPI(s), nil
}

func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader, secret string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return &Event{ID: evt.ID, Type: string(evt.Type), Data: evt.Data.Raw}, nil
}

func sessionFromAPI(s *stripeapi.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
