package enums

import "fmt"

// WalletEntryKind labels the direction of a wallet ledger entry.
type WalletEntryKind string

const (
	WalletEntryDebit  WalletEntryKind = "debit"
	WalletEntryCredit WalletEntryKind = "credit"
)

var validWalletEntryKinds = []WalletEntryKind{
	WalletEntryDebit,
	WalletEntryCredit,
}

// String implements fmt.Stringer.
func (w WalletEntryKind) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletEntryKind.
func (w WalletEntryKind) IsValid() bool {
	for _, candidate := range validWalletEntryKinds {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletEntryKind converts raw input into a WalletEntryKind.
func ParseWalletEntryKind(value string) (WalletEntryKind, error) {
	for _, candidate := range validWalletEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry kind %q", value)
}
