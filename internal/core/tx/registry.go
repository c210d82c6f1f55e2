package tx

import (
	"encoding/json"
	"errors"
)

// ErrUnknownTransactionType is returned when a transaction type is unknown.
var ErrUnknownTransactionType = errors.New("unknown transaction type")

// FromJSON creates a Transaction from a JSON object.
func FromJSON(data []byte) (Transaction, error) {
	// First, unmarshal just enough to learn the type.
	var raw struct {
		TransactionType string `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	txType, ok := TypeFromName(raw.TransactionType)
	if !ok {
		return nil, ErrUnknownTransactionType
	}

	txn, err := NewFromType(txType)
	if err != nil {
		return nil, err
	}

	// Unmarshal into the concrete type.
	if err := json.Unmarshal(data, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// NewFromType creates an empty transaction of the given type.
func NewFromType(txType Type) (Transaction, error) {
	switch txType {
	case TypeList:
		return &List{BaseTx: *NewBaseTx(TypeList, "")}, nil
	case TypeCancel:
		return &Cancel{BaseTx: *NewBaseTx(TypeCancel, "")}, nil
	case TypeBuy:
		return &Buy{BaseTx: *NewBaseTx(TypeBuy, "")}, nil
	case TypeWithdraw:
		return &Withdraw{BaseTx: *NewBaseTx(TypeWithdraw, "")}, nil
	case TypeSetFee:
		return &SetFee{BaseTx: *NewBaseTx(TypeSetFee, "")}, nil
	default:
		return nil, ErrUnknownTransactionType
	}
}
