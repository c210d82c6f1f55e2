package di

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarketd/internal/core/tx"
	"github.com/LeJamon/goMarketd/internal/history"
	"github.com/LeJamon/goMarketd/internal/rpc"
	"github.com/LeJamon/goMarketd/internal/storage"
)

// Service names used in the container.
const (
	ServiceConfig    = "config"
	ServiceLogger    = "logger"
	ServiceStore     = "store"
	ServiceHistory   = "history"
	ServiceLedger    = "ledger"
	ServiceBank      = "bank"
	ServiceRegistry  = "registry"
	ServiceEngine    = "engine"
	ServiceRPC       = "rpc-server"
	ServiceWS        = "ws-server"
	ServicePublisher = "publisher"
)

func resolve[T any](c *Container, name string) (T, error) {
	var zero T
	service, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	if service == nil {
		return zero, nil
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("service %s has type %T, not %T", name, service, zero)
	}
	return typed, nil
}

// Logger returns the process logger.
func Logger(c *Container) (*zap.Logger, error) {
	return resolve[*zap.Logger](c, ServiceLogger)
}

// Store returns the state checkpoint store.
func Store(c *Container) (*storage.Store, error) {
	return resolve[*storage.Store](c, ServiceStore)
}

// HistoryStore returns the sale archive, nil when history is disabled.
func HistoryStore(c *Container) (*history.SQLStore, error) {
	return resolve[*history.SQLStore](c, ServiceHistory)
}

// Engine returns the transaction engine.
func Engine(c *Container) (*tx.Engine, error) {
	return resolve[*tx.Engine](c, ServiceEngine)
}

// RPCServer returns the JSON-RPC server.
func RPCServer(c *Container) (*rpc.Server, error) {
	return resolve[*rpc.Server](c, ServiceRPC)
}

// WSServer returns the WebSocket server.
func WSServer(c *Container) (*rpc.WebSocketServer, error) {
	return resolve[*rpc.WebSocketServer](c, ServiceWS)
}

// Publisher returns the event publisher feeding WebSocket subscribers.
func Publisher(c *Container) (*rpc.Publisher, error) {
	return resolve[*rpc.Publisher](c, ServicePublisher)
}
