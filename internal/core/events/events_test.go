package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	listed := Listed(5, "Mseller", 100)
	assert.Equal(t, TypeListed, listed.Type)
	assert.EqualValues(t, 5, listed.TokenID)
	assert.EqualValues(t, 100, listed.Price)
	assert.Zero(t, listed.Seq, "sequence is assigned at commit, not construction")

	sold := Sold(5, "Mbuyer", "Mseller", 100)
	assert.Equal(t, TypeSold, sold.Type)
	assert.EqualValues(t, "Mbuyer", sold.Buyer)
	assert.EqualValues(t, "Mseller", sold.Seller)

	cancelled := Cancelled(5)
	assert.Equal(t, TypeCancelled, cancelled.Type)
	assert.EqualValues(t, 5, cancelled.TokenID)

	feeChanged := FeeChanged(25)
	assert.Equal(t, TypeFeeChanged, feeChanged.Type)
	assert.EqualValues(t, 25, feeChanged.NewFee)
}

// Subscribers parse these exact field names; empty fields stay off the
// wire.
func TestEventJSONShape(t *testing.T) {
	ev := Sold(5, "Mbuyer", "Mseller", 100)
	ev.Seq = 7
	ev.Time = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Equal(t, "Sold", fields["type"])
	assert.EqualValues(t, 7, fields["seq"])
	assert.EqualValues(t, 5, fields["token_id"])
	assert.Equal(t, "Mbuyer", fields["buyer"])
	assert.Equal(t, "Mseller", fields["seller"])
	assert.EqualValues(t, 100, fields["price"])
	assert.NotContains(t, fields, "new_fee")

	raw, err = json.Marshal(Cancelled(5))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "price")
	assert.NotContains(t, fields, "buyer")
	assert.NotContains(t, fields, "seller")
}
