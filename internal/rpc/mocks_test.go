package rpc

import (
	"context"
	"sort"

	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/tx"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
	"github.com/LeJamon/goMarketd/internal/history"
)

// Deterministic test addresses in the real wire format.
var (
	addrAlice    = crypto.EncodeAddress([20]byte{0xA1}).String()
	addrBob      = crypto.EncodeAddress([20]byte{0xB0}).String()
	addrOperator = crypto.EncodeAddress([20]byte{0x0F}).String()
)

// mockMarketService is a canned MarketService for handler tests.
type mockMarketService struct {
	listings    map[types.TokenID]*state.Listing
	pending     map[types.Address]types.Amount
	fee         types.Amount
	config      tx.EngineConfig
	stats       tx.Stats
	applied     []tx.Transaction
	applyResult tx.ApplyResult
}

func newMockMarketService() *mockMarketService {
	return &mockMarketService{
		listings: make(map[types.TokenID]*state.Listing),
		pending:  make(map[types.Address]types.Amount),
		fee:      25,
		config: tx.EngineConfig{
			Operator: types.Address(addrOperator),
			MaxPrice: tx.DefaultMaxPrice,
			MaxFee:   tx.DefaultMaxFee,
		},
		applyResult: tx.ApplyResult{
			Result:  tx.TesSUCCESS,
			Applied: true,
			Message: tx.TesSUCCESS.Message(),
		},
	}
}

func (m *mockMarketService) Apply(ctx context.Context, txn tx.Transaction) tx.ApplyResult {
	m.applied = append(m.applied, txn)
	return m.applyResult
}

func (m *mockMarketService) Listing(tokenID types.TokenID) (*state.Listing, bool) {
	l, ok := m.listings[tokenID]
	return l, ok
}

func (m *mockMarketService) Listings() []*state.Listing {
	out := make([]*state.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

func (m *mockMarketService) PendingWithdrawal(account types.Address) types.Amount {
	return m.pending[account]
}

func (m *mockMarketService) CurrentFee() types.Amount {
	return m.fee
}

func (m *mockMarketService) Stats() tx.Stats {
	return m.stats
}

func (m *mockMarketService) Config() tx.EngineConfig {
	return m.config
}

// mockHistoryService serves canned sales for handler tests.
type mockHistoryService struct {
	sales []history.Sale
}

func (m *mockHistoryService) RecentSales(ctx context.Context, limit int) ([]history.Sale, error) {
	if limit > 0 && limit < len(m.sales) {
		return m.sales[:limit], nil
	}
	return m.sales, nil
}

func (m *mockHistoryService) SalesByToken(ctx context.Context, tokenID types.TokenID, limit int) ([]history.Sale, error) {
	var out []history.Sale
	for _, s := range m.sales {
		if s.TokenID == tokenID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockHistoryService) SalesByAccount(ctx context.Context, account types.Address, limit int) ([]history.Sale, error) {
	var out []history.Sale
	for _, s := range m.sales {
		if s.Seller == account || s.Buyer == account {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockHistoryService) SaleCount(ctx context.Context) (int64, error) {
	return int64(len(m.sales)), nil
}

// setupTestServices swaps the service singleton for the test and
// returns the restore func.
func setupTestServices(market MarketService, hist HistoryService) func() {
	oldServices := Services
	Services = &ServiceContainer{
		Market:  market,
		History: hist,
	}
	return func() {
		Services = oldServices
	}
}

func guestContext() *RpcContext {
	return &RpcContext{
		Context:    context.Background(),
		Role:       RoleGuest,
		ApiVersion: ApiVersion1,
	}
}

func adminContext() *RpcContext {
	return &RpcContext{
		Context:    context.Background(),
		Role:       RoleAdmin,
		ApiVersion: ApiVersion1,
		IsAdmin:    true,
	}
}
