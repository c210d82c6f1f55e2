package rpc

import (
	"encoding/json"

	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
	"github.com/LeJamon/goMarketd/internal/history"
)

// listingJSON renders one listing for responses.
func listingJSON(l *state.Listing) map[string]interface{} {
	return map[string]interface{}{
		"token_id": uint64(l.TokenID),
		"seller":   l.Seller.String(),
		"price":    uint64(l.Price),
	}
}

// MarketListingMethod handles the market_listing RPC method. It returns
// the listing for one token, or listed=false when the token is not on
// the market. An unlisted token is an ordinary answer, not an error.
type MarketListingMethod struct{}

func (m *MarketListingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		TokenID *uint64 `json:"token_id"`
	}

	if params != nil {
		if err := json.Unmarshal(params, &request); err != nil {
			return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
		}
	}

	if request.TokenID == nil {
		return nil, RpcErrorInvalidParams("token_id is required")
	}

	if Services == nil || Services.Market == nil {
		return nil, RpcErrorInternal("Market service not available")
	}

	tokenID := types.TokenID(*request.TokenID)
	listing, ok := Services.Market.Listing(tokenID)
	if !ok {
		return map[string]interface{}{
			"token_id": *request.TokenID,
			"listed":   false,
		}, nil
	}

	return map[string]interface{}{
		"token_id": *request.TokenID,
		"listed":   true,
		"listing":  listingJSON(listing),
	}, nil
}

func (m *MarketListingMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *MarketListingMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// MarketListingsMethod handles the market_listings RPC method. It
// returns all active listings ordered by token ID, optionally filtered
// by seller and truncated to a limit.
type MarketListingsMethod struct{}

func (m *MarketListingsMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Seller string `json:"seller,omitempty"`
		Limit  int    `json:"limit,omitempty"`
	}

	if params != nil {
		if err := json.Unmarshal(params, &request); err != nil {
			return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
		}
	}

	if Services == nil || Services.Market == nil {
		return nil, RpcErrorInternal("Market service not available")
	}

	all := Services.Market.Listings()

	listings := make([]map[string]interface{}, 0, len(all))
	for _, l := range all {
		if request.Seller != "" && l.Seller.String() != request.Seller {
			continue
		}
		listings = append(listings, listingJSON(l))
		if request.Limit > 0 && len(listings) >= request.Limit {
			break
		}
	}

	return map[string]interface{}{
		"listings": listings,
		"count":    len(listings),
	}, nil
}

func (m *MarketListingsMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *MarketListingsMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// MarketFeeMethod handles the market_fee RPC method. It reports the
// current listing fee together with the operator and the fee ceiling.
type MarketFeeMethod struct{}

func (m *MarketFeeMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if Services == nil || Services.Market == nil {
		return nil, RpcErrorInternal("Market service not available")
	}

	config := Services.Market.Config()

	return map[string]interface{}{
		"listing_fee": uint64(Services.Market.CurrentFee()),
		"max_fee":     uint64(config.MaxFee),
		"operator":    config.Operator.String(),
	}, nil
}

func (m *MarketFeeMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *MarketFeeMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// MarketPendingMethod handles the market_pending RPC method. It returns
// the account's withdrawable balance. An account that never sold
// anything has a zero balance, not an error.
type MarketPendingMethod struct{}

func (m *MarketPendingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account string `json:"account"`
	}

	if params != nil {
		if err := json.Unmarshal(params, &request); err != nil {
			return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
		}
	}

	if request.Account == "" {
		return nil, RpcErrorInvalidParams("account is required")
	}
	if !crypto.IsValidAddress(request.Account) {
		return nil, RpcErrorActMalformed("not a valid address: " + request.Account)
	}

	if Services == nil || Services.Market == nil {
		return nil, RpcErrorInternal("Market service not available")
	}

	pending := Services.Market.PendingWithdrawal(types.Address(request.Account))

	return map[string]interface{}{
		"account":            request.Account,
		"pending_withdrawal": uint64(pending),
	}, nil
}

func (m *MarketPendingMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *MarketPendingMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// MarketSalesMethod handles the market_sales RPC method, backed by the
// sale archive. Filters are mutually exclusive: token_id selects one
// token's sales, account selects sales the account participated in,
// neither returns the most recent sales overall.
type MarketSalesMethod struct{}

func (m *MarketSalesMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		TokenID *uint64 `json:"token_id,omitempty"`
		Account string  `json:"account,omitempty"`
		Limit   int     `json:"limit,omitempty"`
	}

	if params != nil {
		if err := json.Unmarshal(params, &request); err != nil {
			return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
		}
	}

	if request.TokenID != nil && request.Account != "" {
		return nil, RpcErrorInvalidParams("token_id and account are mutually exclusive")
	}
	if request.Account != "" && !crypto.IsValidAddress(request.Account) {
		return nil, RpcErrorActMalformed("not a valid address: " + request.Account)
	}

	if Services == nil || Services.Market == nil {
		return nil, RpcErrorInternal("Market service not available")
	}
	if Services.History == nil {
		return nil, RpcErrorNotEnabled("history")
	}

	var (
		sales []history.Sale
		err   error
	)
	switch {
	case request.TokenID != nil:
		sales, err = Services.History.SalesByToken(ctx.Context, types.TokenID(*request.TokenID), request.Limit)
	case request.Account != "":
		sales, err = Services.History.SalesByAccount(ctx.Context, types.Address(request.Account), request.Limit)
	default:
		sales, err = Services.History.RecentSales(ctx.Context, request.Limit)
	}
	if err != nil {
		return nil, RpcErrorInternal("Failed to query sales: " + err.Error())
	}

	total, err := Services.History.SaleCount(ctx.Context)
	if err != nil {
		return nil, RpcErrorInternal("Failed to count sales: " + err.Error())
	}

	return map[string]interface{}{
		"sales":       sales,
		"count":       len(sales),
		"total_sales": total,
	}, nil
}

func (m *MarketSalesMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *MarketSalesMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}
