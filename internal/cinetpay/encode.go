package cinetpay

import (
	"encoding/json"
	"net/url"
	"strconv"
)

func setIfPresent(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

// formValues adds the merchant credentials. They are always present on a
// validated MerchantConfig.
func (m MerchantConfig) formValues(v url.Values) {
	v.Set("apikey", m.apiKey)
	v.Set("site_id", strconv.FormatInt(m.siteID, 10))
	v.Set("notify_url", m.notifyURL)
	v.Set("return_url", m.returnURL)
	v.Set("lang", string(m.lang))
}

// formValues adds the payment fields, skipping empty optional ones. Metadata
// travels as one JSON-encoded field.
func (r PaymentRequest) formValues(v url.Values) error {
	o := r.opts
	v.Set("transaction_id", o.TransactionID)
	v.Set("amount", o.Amount.String())
	v.Set("currency", string(o.Currency))
	v.Set("description", o.Description)
	v.Set("channels", string(o.Channels))

	setIfPresent(v, "customer_id", o.CustomerID)
	setIfPresent(v, "customer_name", o.CustomerName)
	setIfPresent(v, "customer_surname", o.CustomerSurname)
	setIfPresent(v, "customer_phone_number", o.CustomerPhoneNumber)
	setIfPresent(v, "customer_email", o.CustomerEmail)
	setIfPresent(v, "customer_address", o.CustomerAddress)
	setIfPresent(v, "customer_city", o.CustomerCity)
	setIfPresent(v, "customer_state", o.CustomerState)
	setIfPresent(v, "customer_zip_code", o.CustomerZipCode)
	setIfPresent(v, "customer_country", o.CustomerCountry)

	if len(o.Metadata) > 0 {
		md, err := json.Marshal(o.Metadata)
		if err != nil {
			return err
		}
		v.Set("metadata", string(md))
	}
	return nil
}

func paymentForm(req PaymentRequest, merchant MerchantConfig) (string, error) {
	v := url.Values{}
	if err := req.formValues(v); err != nil {
		return "", err
	}
	merchant.formValues(v)
	return v.Encode(), nil
}

func statusForm(transactionID string, merchant MerchantConfig) string {
	v := url.Values{}
	v.Set("transaction_id", transactionID)
	v.Set("token", transactionID)
	merchant.formValues(v)
	return v.Encode()
}
