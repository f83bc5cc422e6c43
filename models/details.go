package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type CryptoNetwork string

const (
	NetworkBitcoin  CryptoNetwork = "bitcoin"
	NetworkEthereum CryptoNetwork = "ethereum"
	NetworkTron     CryptoNetwork = "tron"
)

func (n CryptoNetwork) Valid() bool {
	switch n {
	case NetworkBitcoin, NetworkEthereum, NetworkTron:
		return true
	}
	return false
}

type BankDetails struct {
	AccountHolderName string `json:"account_holder_name"`
	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	RoutingNumber     string `json:"routing_number"`
}

type CryptoDetails struct {
	WalletAddress string        `json:"wallet_address"`
	Network       CryptoNetwork `json:"network"`
}

type PayPalDetails struct {
	Email string `json:"email"`
}

// MethodDetails holds exactly one payout variant. Use the constructors;
// a value built by hand with several variants set is rejected by Method.
type MethodDetails struct {
	Bank   *BankDetails
	Crypto *CryptoDetails
	PayPal *PayPalDetails
}

func BankTransfer(d BankDetails) MethodDetails { return MethodDetails{Bank: &d} }
func Crypto(d CryptoDetails) MethodDetails     { return MethodDetails{Crypto: &d} }
func PayPal(d PayPalDetails) MethodDetails     { return MethodDetails{PayPal: &d} }

// Method reports which variant is populated. ok is false when none or
// more than one is set.
func (d MethodDetails) Method() (Method, bool) {
	var (
		m Method
		n int
	)
	if d.Bank != nil {
		m, n = MethodBankTransfer, n+1
	}
	if d.Crypto != nil {
		m, n = MethodCrypto, n+1
	}
	if d.PayPal != nil {
		m, n = MethodPayPal, n+1
	}
	return m, n == 1
}

func (d MethodDetails) Clone() MethodDetails {
	var c MethodDetails
	if d.Bank != nil {
		b := *d.Bank
		c.Bank = &b
	}
	if d.Crypto != nil {
		cr := *d.Crypto
		c.Crypto = &cr
	}
	if d.PayPal != nil {
		p := *d.PayPal
		c.PayPal = &p
	}
	return c
}

// DecodeMethodDetails reads the variant payload for method from raw JSON.
func DecodeMethodDetails(method Method, raw []byte) (MethodDetails, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch method {
	case MethodBankTransfer:
		var b BankDetails
		if err := json.Unmarshal(raw, &b); err != nil {
			return MethodDetails{}, err
		}
		return BankTransfer(b), nil
	case MethodCrypto:
		var c CryptoDetails
		if err := json.Unmarshal(raw, &c); err != nil {
			return MethodDetails{}, err
		}
		return Crypto(c), nil
	case MethodPayPal:
		var p PayPalDetails
		if err := json.Unmarshal(raw, &p); err != nil {
			return MethodDetails{}, err
		}
		return PayPal(p), nil
	}
	return MethodDetails{}, fmt.Errorf("unknown withdrawal method %q", method)
}

type taggedDetails struct {
	Method Method `json:"method"`
	*BankDetails
	*CryptoDetails
	*PayPalDetails
}

func (d MethodDetails) MarshalJSON() ([]byte, error) {
	m, ok := d.Method()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(taggedDetails{
		Method:        m,
		BankDetails:   d.Bank,
		CryptoDetails: d.Crypto,
		PayPalDetails: d.PayPal,
	})
}

func (d *MethodDetails) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = MethodDetails{}
		return nil
	}
	var tag struct {
		Method Method `json:"method"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	decoded, err := DecodeMethodDetails(tag.Method, data)
	if err != nil {
		return err
	}
	*d = decoded
	return nil
}

// Value stores the variant as jsonb.
func (d MethodDetails) Value() (driver.Value, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *MethodDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	case nil:
		*d = MethodDetails{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into MethodDetails", src)
}
