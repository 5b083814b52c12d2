package cinetpay

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyXOF Currency = "XOF"
	CurrencyXAF Currency = "XAF"
	CurrencyCDF Currency = "CDF"
	CurrencyGNF Currency = "GNF"
)

type Channel string

const (
	ChannelAll         Channel = "ALL"
	ChannelMobileMoney Channel = "MOBILE_MONEY"
	ChannelCreditCard  Channel = "CREDIT_CARD"
)

// PaymentOptions carries the caller-supplied fields of one payment attempt.
// Only the first five are required; the customer fields and Metadata are
// forwarded to the gateway as-is.
type PaymentOptions struct {
	TransactionID string          `json:"transaction_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      Currency        `json:"currency" validate:"required,oneof=XOF XAF CDF GNF"`
	Description   string          `json:"description" validate:"required"`
	Channels      Channel         `json:"channels" validate:"required,oneof=ALL MOBILE_MONEY CREDIT_CARD"`

	CustomerID          string `json:"customer_id,omitempty"`
	CustomerName        string `json:"customer_name,omitempty"`
	CustomerSurname     string `json:"customer_surname,omitempty"`
	CustomerPhoneNumber string `json:"customer_phone_number,omitempty"`
	CustomerEmail       string `json:"customer_email,omitempty"`
	CustomerAddress     string `json:"customer_address,omitempty"`
	CustomerCity        string `json:"customer_city,omitempty"`
	CustomerState       string `json:"customer_state,omitempty"`
	CustomerZipCode     string `json:"customer_zip_code,omitempty"`
	CustomerCountry     string `json:"customer_country,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// PaymentRequest is a validated PaymentOptions.
type PaymentRequest struct {
	opts PaymentOptions
}

func NewPaymentRequest(opts PaymentOptions) (PaymentRequest, error) {
	if err := validate.Struct(opts); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return PaymentRequest{}, ErrRequiredFields
		}
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return PaymentRequest{}, ErrRequiredFields
			}
		}
		fe := verrs[0]
		return PaymentRequest{}, fmt.Errorf("%w: %s must be one of %s (got %q)",
			ErrValidation, fe.Field(), fe.Param(), fe.Value())
	}

	if !opts.Amount.IsPositive() {
		return PaymentRequest{}, ErrInvalidAmount
	}

	if opts.Metadata != nil {
		md := make(map[string]any, len(opts.Metadata))
		for k, v := range opts.Metadata {
			md[k] = v
		}
		opts.Metadata = md
	}

	return PaymentRequest{opts: opts}, nil
}

func (r PaymentRequest) TransactionID() string   { return r.opts.TransactionID }
func (r PaymentRequest) Amount() decimal.Decimal { return r.opts.Amount }
func (r PaymentRequest) Currency() Currency      { return r.opts.Currency }
func (r PaymentRequest) Description() string     { return r.opts.Description }
func (r PaymentRequest) Channels() Channel       { return r.opts.Channels }

// Options returns a copy of the validated fields.
func (r PaymentRequest) Options() PaymentOptions {
	o := r.opts
	if r.opts.Metadata != nil {
		o.Metadata = make(map[string]any, len(r.opts.Metadata))
		for k, v := range r.opts.Metadata {
			o.Metadata[k] = v
		}
	}
	return o
}
