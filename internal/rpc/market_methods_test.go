package rpc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/history"
)

func resultMap(t *testing.T, result interface{}) map[string]interface{} {
	t.Helper()
	m, ok := result.(map[string]interface{})
	require.True(t, ok, "result should be a map, got %T", result)
	return m
}

func TestMarketListing(t *testing.T) {
	mock := newMockMarketService()
	mock.listings[7] = &state.Listing{TokenID: 7, Seller: types.Address(addrAlice), Price: 500}
	cleanup := setupTestServices(mock, nil)
	defer cleanup()

	method := &MarketListingMethod{}

	t.Run("listed token", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"token_id": 7}`))
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, true, m["listed"])

		listing, ok := m["listing"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, uint64(7), listing["token_id"])
		assert.Equal(t, addrAlice, listing["seller"])
		assert.Equal(t, uint64(500), listing["price"])
	})

	t.Run("unlisted token is not an error", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"token_id": 99}`))
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, false, m["listed"])
		assert.NotContains(t, m, "listing")
	})

	t.Run("missing token_id", func(t *testing.T) {
		_, rpcErr := method.Handle(guestContext(), nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})

	t.Run("token_id zero is accepted", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"token_id": 0}`))
		require.Nil(t, rpcErr)
		assert.Equal(t, false, resultMap(t, result)["listed"])
	})
}

func TestMarketListings(t *testing.T) {
	mock := newMockMarketService()
	mock.listings[1] = &state.Listing{TokenID: 1, Seller: types.Address(addrAlice), Price: 100}
	mock.listings[2] = &state.Listing{TokenID: 2, Seller: types.Address(addrBob), Price: 200}
	mock.listings[3] = &state.Listing{TokenID: 3, Seller: types.Address(addrAlice), Price: 300}
	cleanup := setupTestServices(mock, nil)
	defer cleanup()

	method := &MarketListingsMethod{}

	t.Run("all listings in token order", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), nil)
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, 3, m["count"])

		listings := m["listings"].([]map[string]interface{})
		require.Len(t, listings, 3)
		assert.Equal(t, uint64(1), listings[0]["token_id"])
		assert.Equal(t, uint64(2), listings[1]["token_id"])
		assert.Equal(t, uint64(3), listings[2]["token_id"])
	})

	t.Run("seller filter", func(t *testing.T) {
		params, _ := json.Marshal(map[string]interface{}{"seller": addrAlice})
		result, rpcErr := method.Handle(guestContext(), params)
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, 2, m["count"])
		for _, l := range m["listings"].([]map[string]interface{}) {
			assert.Equal(t, addrAlice, l["seller"])
		}
	})

	t.Run("limit truncates", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"limit": 2}`))
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, 2, m["count"])
	})
}

func TestMarketFee(t *testing.T) {
	mock := newMockMarketService()
	mock.fee = 42
	cleanup := setupTestServices(mock, nil)
	defer cleanup()

	method := &MarketFeeMethod{}
	result, rpcErr := method.Handle(guestContext(), nil)
	require.Nil(t, rpcErr)

	m := resultMap(t, result)
	assert.Equal(t, uint64(42), m["listing_fee"])
	assert.Equal(t, addrOperator, m["operator"])
	assert.NotZero(t, m["max_fee"])
}

func TestMarketPending(t *testing.T) {
	mock := newMockMarketService()
	mock.pending[types.Address(addrAlice)] = 1250
	cleanup := setupTestServices(mock, nil)
	defer cleanup()

	method := &MarketPendingMethod{}

	t.Run("credited account", func(t *testing.T) {
		params, _ := json.Marshal(map[string]interface{}{"account": addrAlice})
		result, rpcErr := method.Handle(guestContext(), params)
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, addrAlice, m["account"])
		assert.Equal(t, uint64(1250), m["pending_withdrawal"])
	})

	t.Run("unknown account has zero balance", func(t *testing.T) {
		params, _ := json.Marshal(map[string]interface{}{"account": addrBob})
		result, rpcErr := method.Handle(guestContext(), params)
		require.Nil(t, rpcErr)
		assert.Equal(t, uint64(0), resultMap(t, result)["pending_withdrawal"])
	})

	t.Run("malformed address", func(t *testing.T) {
		_, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"account": "not-an-address"}`))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcACT_MALFORMED, rpcErr.Code)
	})

	t.Run("missing account", func(t *testing.T) {
		_, rpcErr := method.Handle(guestContext(), nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})
}

func TestMarketSales(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	hist := &mockHistoryService{
		sales: []history.Sale{
			{ID: "s3", TokenID: 2, Seller: types.Address(addrBob), Buyer: types.Address(addrAlice), Price: 900, EventSeq: 9, OccurredAt: now.Add(2 * time.Second)},
			{ID: "s2", TokenID: 1, Seller: types.Address(addrAlice), Buyer: types.Address(addrBob), Price: 700, EventSeq: 6, OccurredAt: now.Add(time.Second)},
			{ID: "s1", TokenID: 1, Seller: types.Address(addrOperator), Buyer: types.Address(addrAlice), Price: 500, EventSeq: 3, OccurredAt: now},
		},
	}
	cleanup := setupTestServices(newMockMarketService(), hist)
	defer cleanup()

	method := &MarketSalesMethod{}

	t.Run("recent sales", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), nil)
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, 3, m["count"])
		assert.Equal(t, int64(3), m["total_sales"])
	})

	t.Run("by token", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"token_id": 1}`))
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, 2, m["count"])
	})

	t.Run("by account", func(t *testing.T) {
		params, _ := json.Marshal(map[string]interface{}{"account": addrBob})
		result, rpcErr := method.Handle(guestContext(), params)
		require.Nil(t, rpcErr)

		m := resultMap(t, result)
		assert.Equal(t, 2, m["count"])
	})

	t.Run("token and account together rejected", func(t *testing.T) {
		params, _ := json.Marshal(map[string]interface{}{"token_id": 1, "account": addrBob})
		_, rpcErr := method.Handle(guestContext(), params)
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})

	t.Run("history disabled", func(t *testing.T) {
		restore := setupTestServices(newMockMarketService(), nil)
		defer restore()

		_, rpcErr := method.Handle(guestContext(), nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcNOT_ENABLED, rpcErr.Code)
	})
}

func TestServerInfo(t *testing.T) {
	mock := newMockMarketService()
	mock.listings[1] = &state.Listing{TokenID: 1, Seller: types.Address(addrAlice), Price: 100}
	mock.stats.Applied = 12
	mock.stats.Failed = 3
	cleanup := setupTestServices(mock, &mockHistoryService{})
	defer cleanup()

	method := &ServerInfoMethod{}
	result, rpcErr := method.Handle(guestContext(), nil)
	require.Nil(t, rpcErr)

	m := resultMap(t, result)
	info, ok := m["info"].(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, BuildVersion, info["build_version"])
	assert.Equal(t, "standalone", info["server_state"])
	assert.Equal(t, true, info["history_enabled"])

	market, ok := info["market"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, market["listings"])
	assert.Equal(t, uint64(12), market["txn_applied"])
	assert.Equal(t, uint64(3), market["txn_failed"])
}

func TestPingAndRandom(t *testing.T) {
	cleanup := setupTestServices(newMockMarketService(), nil)
	defer cleanup()

	t.Run("ping reports role", func(t *testing.T) {
		method := &PingMethod{}
		result, rpcErr := method.Handle(guestContext(), nil)
		require.Nil(t, rpcErr)
		assert.Equal(t, "guest", resultMap(t, result)["role"])

		result, rpcErr = method.Handle(adminContext(), nil)
		require.Nil(t, rpcErr)
		assert.Equal(t, "admin", resultMap(t, result)["role"])
	})

	t.Run("random returns 32 bytes of hex", func(t *testing.T) {
		method := &RandomMethod{}
		result, rpcErr := method.Handle(guestContext(), nil)
		require.Nil(t, rpcErr)

		random, ok := resultMap(t, result)["random"].(string)
		require.True(t, ok)
		assert.Len(t, random, 64)

		again, _ := method.Handle(guestContext(), nil)
		assert.NotEqual(t, random, resultMap(t, again)["random"])
	})
}
