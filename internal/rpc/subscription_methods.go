package rpc

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// SubscribeMethod handles the subscribe RPC command over HTTP, where
// there is no connection to deliver events to. The real implementation
// lives in the WebSocket handler.
type SubscribeMethod struct{}

func (m *SubscribeMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return nil, RpcErrorNotSupported("subscribe is only available via WebSocket")
}

func (m *SubscribeMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *SubscribeMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// UnsubscribeMethod handles the unsubscribe RPC command over HTTP.
type UnsubscribeMethod struct{}

func (m *UnsubscribeMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return nil, RpcErrorNotSupported("unsubscribe is only available via WebSocket")
}

func (m *UnsubscribeMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *UnsubscribeMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// Connection is one WebSocket client from the subscription manager's
// point of view: a send channel plus the streams and accounts it wants.
type Connection struct {
	ID          string
	SendChannel chan []byte

	mu       sync.RWMutex
	streams  map[SubscriptionType]struct{}
	accounts map[string]struct{}
}

// NewConnection creates a connection with the given send buffer size.
func NewConnection(id string, sendBuffer int) *Connection {
	return &Connection{
		ID:          id,
		SendChannel: make(chan []byte, sendBuffer),
		streams:     make(map[SubscriptionType]struct{}),
		accounts:    make(map[string]struct{}),
	}
}

func (c *Connection) subscribe(req SubscriptionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range req.Streams {
		c.streams[st] = struct{}{}
	}
	for _, acct := range req.Accounts {
		c.accounts[acct] = struct{}{}
	}
}

func (c *Connection) unsubscribe(req SubscriptionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range req.Streams {
		delete(c.streams, st)
	}
	for _, acct := range req.Accounts {
		delete(c.accounts, acct)
	}
}

// wants reports whether the connection subscribes to the stream.
func (c *Connection) wants(st SubscriptionType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.streams[st]
	return ok
}

// watches reports whether the connection subscribes to any of the
// given accounts.
func (c *Connection) watches(accounts []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, acct := range accounts {
		if _, ok := c.accounts[acct]; ok {
			return true
		}
	}
	return false
}

// SubscriptionManager tracks WebSocket connections and routes event
// broadcasts to the ones that asked for them.
type SubscriptionManager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	log         *zap.Logger
}

// NewSubscriptionManager creates an empty manager.
func NewSubscriptionManager(log *zap.Logger) *SubscriptionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubscriptionManager{
		connections: make(map[string]*Connection),
		log:         log,
	}
}

// AddConnection registers a connection for broadcasts.
func (sm *SubscriptionManager) AddConnection(conn *Connection) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.connections[conn.ID] = conn
}

// RemoveConnection drops a connection. Safe to call twice.
func (sm *SubscriptionManager) RemoveConnection(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.connections, id)
}

// HandleSubscribe validates and applies a subscribe request.
func (sm *SubscriptionManager) HandleSubscribe(conn *Connection, request SubscriptionRequest) *RpcError {
	if len(request.Streams) == 0 && len(request.Accounts) == 0 {
		return RpcErrorInvalidParams("nothing to subscribe to")
	}
	for _, st := range request.Streams {
		if !knownStream(st) {
			return RpcErrorStreamMalformed("unknown stream: " + string(st))
		}
	}
	for _, acct := range request.Accounts {
		if acct == "" {
			return RpcErrorActMalformed("empty account in subscription")
		}
	}

	conn.subscribe(request)
	return nil
}

// HandleUnsubscribe applies an unsubscribe request. Unsubscribing from
// something never subscribed to is a no-op, not an error.
func (sm *SubscriptionManager) HandleUnsubscribe(conn *Connection, request SubscriptionRequest) *RpcError {
	for _, st := range request.Streams {
		if !knownStream(st) {
			return RpcErrorStreamMalformed("unknown stream: " + string(st))
		}
	}

	conn.unsubscribe(request)
	return nil
}

// BroadcastToStream delivers a message to every connection subscribed
// to the stream. Slow connections are skipped rather than blocking the
// broadcast.
func (sm *SubscriptionManager) BroadcastToStream(st SubscriptionType, data []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, conn := range sm.connections {
		if !conn.wants(st) {
			continue
		}
		sm.send(conn, data)
	}
}

// BroadcastEvent delivers a market event message to marketplace stream
// subscribers and to connections watching any of the given accounts.
// Each connection receives at most one copy.
func (sm *SubscriptionManager) BroadcastEvent(data []byte, accounts []string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, conn := range sm.connections {
		if !conn.wants(SubMarketplace) && !conn.watches(accounts) {
			continue
		}
		sm.send(conn, data)
	}
}

// SubscriberCount returns the number of connections subscribed to the
// stream.
func (sm *SubscriptionManager) SubscriberCount(st SubscriptionType) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	count := 0
	for _, conn := range sm.connections {
		if conn.wants(st) {
			count++
		}
	}
	return count
}

func (sm *SubscriptionManager) send(conn *Connection, data []byte) {
	select {
	case conn.SendChannel <- data:
	default:
		sm.log.Warn("dropping broadcast to slow subscriber", zap.String("conn", conn.ID))
	}
}
