package cinetpay

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

const (
	codePaymentCreated = "201"
	codeStatusSuccess  = "00"
)

// FlexString decodes a JSON string, number or bool as its text. The gateway
// is not consistent about quoting codes and amounts.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexString(strconv.FormatBool(v))
	return nil
}

func (f FlexString) String() string { return string(f) }

type PaymentData struct {
	PaymentURL   string `json:"payment_url"`
	PaymentToken string `json:"payment_token"`
}

// PaymentResponse is the body of the payment initiation endpoint. Data is
// only set on success (code "201"); failures carry Description instead.
type PaymentResponse struct {
	Code          FlexString   `json:"code"`
	Message       string       `json:"message"`
	Description   string       `json:"description,omitempty"`
	Data          *PaymentData `json:"data,omitempty"`
	APIResponseID string       `json:"api_response_id,omitempty"`
}

func (r *PaymentResponse) UnmarshalJSON(b []byte) error {
	type alias PaymentResponse
	var raw struct {
		alias
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = PaymentResponse(raw.alias)
	r.Data = nil
	if isObject(raw.Data) {
		r.Data = new(PaymentData)
		return json.Unmarshal(raw.Data, r.Data)
	}
	return nil
}

// PaymentStatusData is the transaction as last seen by the gateway.
type PaymentStatusData struct {
	SiteID         FlexString `json:"cpm_site_id"`
	Signature      FlexString `json:"signature"`
	Amount         FlexString `json:"cpm_amount"`
	TransactionID  FlexString `json:"cpm_trans_id"`
	Custom         FlexString `json:"cpm_custom"`
	Currency       FlexString `json:"cpm_currency"`
	PayID          FlexString `json:"cpm_payid"`
	PaymentDate    FlexString `json:"cpm_payment_date"`
	PaymentTime    FlexString `json:"cpm_payment_time"`
	ErrorMessage   FlexString `json:"cpm_error_message"`
	PaymentMethod  FlexString `json:"payment_method"`
	PhonePrefix    FlexString `json:"cpm_phone_prefixe"`
	PhoneNumber    FlexString `json:"cel_phone_num"`
	IPNAck         FlexString `json:"cpm_ipn_ack"`
	CreatedAt      FlexString `json:"created_at"`
	UpdatedAt      FlexString `json:"updated_at"`
	Result         FlexString `json:"cpm_result"`
	TransStatus    FlexString `json:"cpm_trans_status"`
	Designation    FlexString `json:"cpm_designation"`
	BuyerName      FlexString `json:"buyer_name"`
}

type PaymentStatusResponse struct {
	Code          FlexString         `json:"code"`
	Message       string             `json:"message"`
	Description   string             `json:"description,omitempty"`
	Data          *PaymentStatusData `json:"data,omitempty"`
	APIResponseID string             `json:"api_response_id,omitempty"`
}

func (r *PaymentStatusResponse) UnmarshalJSON(b []byte) error {
	type alias PaymentStatusResponse
	var raw struct {
		alias
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = PaymentStatusResponse(raw.alias)
	r.Data = nil
	if isObject(raw.Data) {
		r.Data = new(PaymentStatusData)
		return json.Unmarshal(raw.Data, r.Data)
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// LatestPayment is what the latest-payment slot holds: either an initiation
// response (TransactionID, StoredAt) or a completion seen on the return URL
// (Status "completed", CompletedAt, ReturnParams).
type LatestPayment struct {
	TransactionID string            `json:"transaction_id,omitempty"`
	Code          FlexString        `json:"code,omitempty"`
	Message       string            `json:"message,omitempty"`
	Description   string            `json:"description,omitempty"`
	Data          *PaymentData      `json:"data,omitempty"`
	APIResponseID string            `json:"api_response_id,omitempty"`
	StoredAt      *time.Time        `json:"storedAt,omitempty"`
	Status        string            `json:"status,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
	ReturnParams  map[string]string `json:"return_params,omitempty"`
}

// StoredStatus is a status payload captured at CheckedAt.
type StoredStatus struct {
	PaymentStatusData
	CheckedAt time.Time `json:"checkedAt"`
}
