package rpc

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"
)

// BuildVersion identifies this server build in server_info responses.
var BuildVersion = "0.3.0-goMarketd"

// serverStartTime anchors uptime reporting.
var serverStartTime = time.Now()

// ServerInfoMethod handles the server_info RPC method.
type ServerInfoMethod struct{}

func (m *ServerInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if Services == nil || Services.Market == nil {
		return nil, RpcErrorInternal("Market service not available")
	}

	config := Services.Market.Config()
	stats := Services.Market.Stats()
	uptime := int64(time.Since(serverStartTime).Seconds())

	info := map[string]interface{}{
		"build_version": BuildVersion,
		"hostid":        "goMarketd",
		"server_state":  "standalone",
		"uptime":        uptime,
		"time":          time.Now().UTC().Format("2006-Jan-02 15:04:05.000000 MST"),
		"market": map[string]interface{}{
			"listings":    len(Services.Market.Listings()),
			"listing_fee": uint64(Services.Market.CurrentFee()),
			"operator":    config.Operator.String(),
			"txn_applied": stats.Applied,
			"txn_failed":  stats.Failed,
		},
		"history_enabled": Services.History != nil,
	}

	return map[string]interface{}{"info": info}, nil
}

func (m *ServerInfoMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *ServerInfoMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// PingMethod handles the ping RPC method.
type PingMethod struct{}

func (m *PingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	role := "guest"
	if ctx.Role >= RoleAdmin {
		role = "admin"
	}
	return map[string]interface{}{"role": role}, nil
}

func (m *PingMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *PingMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// RandomMethod handles the random RPC method: 256 bits of entropy for
// clients that want a server-supplied seed.
type RandomMethod struct{}

func (m *RandomMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, RpcErrorInternal("Failed to generate random data: " + err.Error())
	}

	return map[string]interface{}{
		"random": hex.EncodeToString(buf[:]),
	}, nil
}

func (m *RandomMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *RandomMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}
