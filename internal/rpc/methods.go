package rpc

// registerAllMethods sets up the complete method registry. Called by
// NewServer; the WebSocket server shares the same registry.
func (s *Server) registerAllMethods() {
	// Server information methods
	s.registry.Register("server_info", &ServerInfoMethod{})
	s.registry.Register("ping", &PingMethod{})
	s.registry.Register("random", &RandomMethod{})

	// Market query methods
	s.registry.Register("market_listing", &MarketListingMethod{})
	s.registry.Register("market_listings", &MarketListingsMethod{})
	s.registry.Register("market_fee", &MarketFeeMethod{})
	s.registry.Register("market_pending", &MarketPendingMethod{})
	s.registry.Register("market_sales", &MarketSalesMethod{})

	// Transaction submission
	s.registry.Register("submit", &SubmitMethod{})
	s.registry.Register("submit_json", &SubmitJsonMethod{})

	// Subscription methods (WebSocket only)
	s.registry.Register("subscribe", &SubscribeMethod{})
	s.registry.Register("unsubscribe", &UnsubscribeMethod{})
}
