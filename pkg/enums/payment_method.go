package enums

import "fmt"

// PaymentMethod identifies how a payment attempt is funded.
type PaymentMethod string

const (
	PaymentMethodWallet    PaymentMethod = "wallet"
	PaymentMethodUPI       PaymentMethod = "upi"
	PaymentMethodWalletUPI PaymentMethod = "wallet_upi"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodWallet,
	PaymentMethodUPI,
	PaymentMethodWalletUPI,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// UsesExternalRail reports whether the method requires UPI confirmation.
func (p PaymentMethod) UsesExternalRail() bool {
	return p == PaymentMethodUPI || p == PaymentMethodWalletUPI
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
