package rpc

import (
	"context"
	"encoding/json"
)

// API version constants. Version 1 is the only one defined so far;
// the negotiation machinery is in place for when a breaking change
// to a response shape is needed.
const (
	ApiVersion1       = 1
	DefaultApiVersion = ApiVersion1
)

// Role-based access control for RPC methods.
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RoleAdmin
)

// RpcContext carries request-scoped information into method handlers.
type RpcContext struct {
	Context    context.Context
	Role       Role
	ApiVersion int
	IsAdmin    bool
	ClientIP   string
}

// MethodHandler is implemented by every RPC method.
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
	RequiredRole() Role
	SupportedApiVersions() []int
}

// MethodRegistry maps method names to handlers.
type MethodRegistry struct {
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	handler, exists := r.methods[name]
	return handler, exists
}

func (r *MethodRegistry) List() []string {
	methods := make([]string, 0, len(r.methods))
	for name := range r.methods {
		methods = append(methods, name)
	}
	return methods
}

// WebSocketCommand is a command received over a WebSocket connection.
// Commands carry the method name and an optional client-chosen ID that
// is echoed back on the response.
type WebSocketCommand struct {
	Command string          `json:"command"`
	ID      interface{}     `json:"id,omitempty"`
	Params  json.RawMessage `json:"-"`
}

// WebSocketResponse is the reply to a WebSocketCommand.
type WebSocketResponse struct {
	Type       string      `json:"type"`
	ID         interface{} `json:"id,omitempty"`
	Status     string      `json:"status"`
	Result     interface{} `json:"result,omitempty"`
	Error      *RpcError   `json:"error,omitempty"`
	ApiVersion int         `json:"api_version,omitempty"`
}

// SubscriptionType names a WebSocket event stream.
type SubscriptionType string

const (
	// SubMarketplace delivers every committed market event in commit
	// order: listings, sales, cancellations, fee changes.
	SubMarketplace SubscriptionType = "marketplace"

	// SubServer delivers server status changes.
	SubServer SubscriptionType = "server"
)

// knownStream reports whether a stream name is subscribable.
func knownStream(st SubscriptionType) bool {
	switch st {
	case SubMarketplace, SubServer:
		return true
	default:
		return false
	}
}

// SubscriptionRequest is the parameter shape for subscribe and
// unsubscribe commands. Streams select event streams; Accounts selects
// market events whose seller or buyer matches.
type SubscriptionRequest struct {
	Streams  []SubscriptionType `json:"streams,omitempty"`
	Accounts []string           `json:"accounts,omitempty"`
}
