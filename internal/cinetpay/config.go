package cinetpay

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Lang string

const (
	LangFR Lang = "fr"
	LangEN Lang = "en"
)

var validate = newValidator()

// newValidator reports fields under their wire (json) names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MerchantOptions is the caller-facing merchant configuration.
type MerchantOptions struct {
	APIKey    string `json:"apikey" validate:"required"`
	SiteID    int64  `json:"site_id" validate:"required"`
	NotifyURL string `json:"notify_url" validate:"required"`
	ReturnURL string `json:"return_url" validate:"required"`
	Lang      Lang   `json:"lang" validate:"required,oneof=fr en"`
}

// MerchantConfig holds validated merchant credentials. It is never mutated
// after NewMerchantConfig returns.
type MerchantConfig struct {
	apiKey    string
	siteID    int64
	notifyURL string
	returnURL string
	lang      Lang
}

func NewMerchantConfig(opts MerchantOptions) (MerchantConfig, error) {
	if err := validate.Struct(opts); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "oneof" {
					return MerchantConfig{}, fmt.Errorf("%w: lang must be one of fr, en (got %q)", ErrConfiguration, opts.Lang)
				}
			}
		}
		return MerchantConfig{}, ErrMissingConfiguration
	}

	return MerchantConfig{
		apiKey:    opts.APIKey,
		siteID:    opts.SiteID,
		notifyURL: opts.NotifyURL,
		returnURL: opts.ReturnURL,
		lang:      opts.Lang,
	}, nil
}

func (m MerchantConfig) APIKey() string    { return m.apiKey }
func (m MerchantConfig) SiteID() int64     { return m.siteID }
func (m MerchantConfig) NotifyURL() string { return m.notifyURL }
func (m MerchantConfig) ReturnURL() string { return m.returnURL }
func (m MerchantConfig) Lang() Lang        { return m.lang }
