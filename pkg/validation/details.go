package validation

import (
	"fmt"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"withdrawal_settlement/internal/wallet"
	"withdrawal_settlement/models"
)

const minWalletAddressLen = 26

type DetailErrorKind string

const (
	Required           DetailErrorKind = "Required"
	TooShort           DetailErrorKind = "TooShort"
	UnsupportedNetwork DetailErrorKind = "UnsupportedNetwork"
	InvalidEmail       DetailErrorKind = "InvalidEmail"
	InvalidAddress     DetailErrorKind = "InvalidAddress"
	UnknownMethod      DetailErrorKind = "UnknownMethod"
	VariantMismatch    DetailErrorKind = "VariantMismatch"
)

type DetailError struct {
	Field string
	Kind  DetailErrorKind
}

func (e *DetailError) Error() string {
	switch e.Kind {
	case Required:
		return fmt.Sprintf("%s is required", e.Field)
	case TooShort:
		return fmt.Sprintf("%s must be at least %d characters", e.Field, minWalletAddressLen)
	case UnsupportedNetwork:
		return fmt.Sprintf("%s must be one of bitcoin, ethereum, tron", e.Field)
	case InvalidEmail:
		return fmt.Sprintf("%s is not a valid email address", e.Field)
	case InvalidAddress:
		return fmt.Sprintf("%s failed checksum verification", e.Field)
	case UnknownMethod:
		return "method must be one of bank_transfer, crypto, paypal"
	case VariantMismatch:
		return "method_details do not match method"
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Kind)
}

var validate = playground.New()

// ValidateDetails returns the first failing field for method, or nil.
func ValidateDetails(method models.Method, details models.MethodDetails) error {
	if errs := CollectDetails(method, details); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// CollectDetails returns every failing field, in field order.
func CollectDetails(method models.Method, details models.MethodDetails) []*DetailError {
	if !method.Valid() {
		return []*DetailError{{Field: "method", Kind: UnknownMethod}}
	}
	if got, ok := details.Method(); !ok || got != method {
		return []*DetailError{{Field: "method_details", Kind: VariantMismatch}}
	}

	var errs []*DetailError
	switch method {
	case models.MethodBankTransfer:
		b := details.Bank
		for _, f := range []struct{ name, value string }{
			{"account_holder_name", b.AccountHolderName},
			{"bank_name", b.BankName},
			{"account_number", b.AccountNumber},
			{"routing_number", b.RoutingNumber},
		} {
			if strings.TrimSpace(f.value) == "" {
				errs = append(errs, &DetailError{Field: f.name, Kind: Required})
			}
		}
	case models.MethodCrypto:
		c := details.Crypto
		switch addr := strings.TrimSpace(c.WalletAddress); {
		case addr == "":
			errs = append(errs, &DetailError{Field: "wallet_address", Kind: Required})
		case len(addr) < minWalletAddressLen:
			errs = append(errs, &DetailError{Field: "wallet_address", Kind: TooShort})
		}
		if !c.Network.Valid() {
			errs = append(errs, &DetailError{Field: "network", Kind: UnsupportedNetwork})
		}
	case models.MethodPayPal:
		email := strings.TrimSpace(details.PayPal.Email)
		if email == "" {
			errs = append(errs, &DetailError{Field: "email", Kind: Required})
		} else if err := validate.Var(email, "email"); err != nil {
			errs = append(errs, &DetailError{Field: "email", Kind: InvalidEmail})
		}
	}
	return errs
}

// Validator bundles the detail rules with optional address checksums.
type Validator struct {
	StrictAddresses bool
}

func (v Validator) Details(method models.Method, details models.MethodDetails) []*DetailError {
	errs := CollectDetails(method, details)
	if len(errs) > 0 || !v.StrictAddresses || method != models.MethodCrypto {
		return errs
	}
	if err := wallet.VerifyAddress(details.Crypto.Network, details.Crypto.WalletAddress); err != nil {
		return []*DetailError{{Field: "wallet_address", Kind: InvalidAddress}}
	}
	return nil
}
