package tx

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
)

// Common errors
var (
	ErrMissingRequiredField   = errors.New("missing required field")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAccount         = errors.New("invalid account")
	ErrInvalidAmount          = errors.New("invalid amount")
)

// Type identifies a transaction type on the wire.
type Type string

const (
	TypeList     Type = "List"
	TypeCancel   Type = "Cancel"
	TypeBuy      Type = "Buy"
	TypeWithdraw Type = "Withdraw"
	TypeSetFee   Type = "SetFee"
)

// TypeFromName resolves a wire name to a transaction type.
func TypeFromName(name string) (Type, bool) {
	switch Type(name) {
	case TypeList, TypeCancel, TypeBuy, TypeWithdraw, TypeSetFee:
		return Type(name), true
	default:
		return "", false
	}
}

// Transaction is the interface that all transaction types must implement.
type Transaction interface {
	// TxType returns the transaction type
	TxType() Type

	// GetCommon returns the common transaction fields
	GetCommon() *Common

	// Validate checks the transaction independently of state
	Validate() error

	// Flatten returns a flat map of all transaction fields for serialization
	Flatten() map[string]any
}

// Appliable is implemented by transaction types that apply themselves to
// market state. Every registered type implements it; keeping it separate
// from Transaction lets read-only tooling work with decoded transactions
// without pulling in apply machinery.
type Appliable interface {
	Apply(ctx *ApplyContext) Result
}

// Common contains fields common to all transaction types.
type Common struct {
	// Account is the address the transaction acts for.
	Account string `json:"account"`

	// TransactionType is the wire name of the concrete type.
	TransactionType string `json:"type"`

	// SigningPubKey is the compressed secp256k1 public key, hex encoded.
	// Required on the signed submission path, absent on the admin path.
	SigningPubKey string `json:"signing_pub_key,omitempty"`

	// Signature is a DER-encoded signature over the signing payload.
	Signature string `json:"signature,omitempty"`
}

// Validate checks the common fields shared by every transaction type.
func (c *Common) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("temMALFORMED: account is required: %w", ErrMissingRequiredField)
	}
	if !crypto.IsValidAddress(c.Account) {
		return fmt.Errorf("temINVALID_ACCOUNT: %q is not a valid address: %w", c.Account, ErrInvalidAccount)
	}
	if c.TransactionType == "" {
		return fmt.Errorf("temMALFORMED: type is required: %w", ErrMissingRequiredField)
	}
	if _, ok := TypeFromName(c.TransactionType); !ok {
		return fmt.Errorf("temUNKNOWN_TYPE: %q: %w", c.TransactionType, ErrInvalidTransactionType)
	}
	return nil
}

// Address returns the account as a typed address.
func (c *Common) Address() types.Address {
	return types.Address(c.Account)
}

// flatten writes the common fields into dst.
func (c *Common) flatten(dst map[string]any) {
	dst["account"] = c.Account
	dst["type"] = c.TransactionType
	if c.SigningPubKey != "" {
		dst["signing_pub_key"] = c.SigningPubKey
	}
	if c.Signature != "" {
		dst["signature"] = c.Signature
	}
}

// BaseTx carries the common fields and is embedded by every concrete type.
type BaseTx struct {
	Common
}

// NewBaseTx creates the embedded base for a transaction of the given type.
func NewBaseTx(txType Type, account string) *BaseTx {
	return &BaseTx{
		Common: Common{
			Account:         account,
			TransactionType: string(txType),
		},
	}
}

// TxType returns the transaction type.
func (b *BaseTx) TxType() Type {
	return Type(b.TransactionType)
}

// GetCommon returns the common transaction fields.
func (b *BaseTx) GetCommon() *Common {
	return &b.Common
}
