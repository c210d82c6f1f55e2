package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single WebSocket write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings go out on pingPeriod, which must be
	// shorter than pongWait.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// maxMessageSize bounds inbound messages.
	maxMessageSize = 512 * 1024

	// sendBufferSize is the per-connection outbound queue. A client
	// that falls this far behind starts losing broadcasts.
	sendBufferSize = 256
)

// WebSocketServer handles WebSocket connections for method calls and
// real-time subscriptions. It dispatches through the same method
// registry as the HTTP server.
type WebSocketServer struct {
	server              *Server
	upgrader            websocket.Upgrader
	subscriptionManager *SubscriptionManager
	connections         map[string]*WebSocketConnection
	connectionsMutex    sync.RWMutex
	log                 *zap.Logger
}

// WebSocketConnection is one upgraded client connection.
type WebSocketConnection struct {
	*Connection

	conn      *websocket.Conn
	role      Role
	clientIP  string
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewWebSocketServer creates a WebSocket server sharing the HTTP
// server's method registry and admin configuration.
func NewWebSocketServer(server *Server, log *zap.Logger) *WebSocketServer {
	if log == nil {
		log = zap.NewNop()
	}

	return &WebSocketServer{
		server: server,
		upgrader: websocket.Upgrader{
			// The daemon binds loopback unless configured otherwise;
			// origin enforcement is left to the deployment in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subscriptionManager: NewSubscriptionManager(log),
		connections:         make(map[string]*WebSocketConnection),
		log:                 log,
	}
}

// Manager returns the subscription manager, for wiring the event
// publisher.
func (ws *WebSocketServer) Manager() *SubscriptionManager {
	return ws.subscriptionManager
}

// ServeHTTP upgrades the connection and starts its pumps.
func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)
	ctx := ws.server.newContext(r)

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connCtx, cancel := context.WithCancel(context.Background())
	wsConn := &WebSocketConnection{
		Connection: NewConnection(uuid.NewString(), sendBufferSize),
		conn:       conn,
		role:       ctx.Role,
		clientIP:   clientIP,
		ctx:        connCtx,
		cancel:     cancel,
	}

	ws.connectionsMutex.Lock()
	ws.connections[wsConn.ID] = wsConn
	ws.connectionsMutex.Unlock()

	ws.subscriptionManager.AddConnection(wsConn.Connection)

	ws.log.Debug("websocket connection opened",
		zap.String("conn", wsConn.ID),
		zap.String("client_ip", clientIP),
	)

	go ws.handleRead(wsConn)
	go ws.handleWrite(wsConn)
}

// handleRead pumps inbound messages until the connection dies.
func (ws *WebSocketServer) handleRead(wsConn *WebSocketConnection) {
	defer ws.closeConnection(wsConn)

	wsConn.conn.SetReadLimit(maxMessageSize)
	wsConn.conn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.conn.SetPongHandler(func(string) error {
		wsConn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := wsConn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Debug("websocket read failed", zap.String("conn", wsConn.ID), zap.Error(err))
			}
			return
		}
		ws.handleMessage(wsConn, message)
	}
}

// handleWrite pumps outbound messages and keepalive pings.
func (ws *WebSocketServer) handleWrite(wsConn *WebSocketConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.closeConnection(wsConn)
	}()

	for {
		select {
		case <-wsConn.ctx.Done():
			return
		case <-ticker.C:
			wsConn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case message := <-wsConn.SendChannel:
			wsConn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				ws.log.Debug("websocket write failed", zap.String("conn", wsConn.ID), zap.Error(err))
				return
			}
		}
	}
}

// handleMessage processes one inbound command. The command name and ID
// sit at the top level; everything else is the params object.
func (ws *WebSocketServer) handleMessage(wsConn *WebSocketConnection, message []byte) {
	var cmdMap map[string]interface{}
	if err := json.Unmarshal(message, &cmdMap); err != nil {
		ws.sendError(wsConn, RpcErrorInvalidParams("Invalid JSON: "+err.Error()), nil)
		return
	}

	command, ok := cmdMap["command"].(string)
	if !ok || command == "" {
		ws.sendError(wsConn, NewRpcError(RpcCOMMAND_MISSING, "missingCommand", "missingCommand", "Missing command field"), cmdMap["id"])
		return
	}

	cmd := WebSocketCommand{
		Command: command,
		ID:      cmdMap["id"],
	}

	apiVersion := DefaultApiVersion
	if apiVer, exists := cmdMap["api_version"]; exists {
		if ver, ok := apiVer.(float64); ok {
			apiVersion = int(ver)
		}
	}

	delete(cmdMap, "command")
	delete(cmdMap, "id")
	delete(cmdMap, "api_version")
	if len(cmdMap) > 0 {
		paramsBytes, _ := json.Marshal(cmdMap)
		cmd.Params = paramsBytes
	}

	rpcCtx := &RpcContext{
		Context:    wsConn.ctx,
		Role:       wsConn.role,
		ApiVersion: apiVersion,
		IsAdmin:    wsConn.role == RoleAdmin,
		ClientIP:   wsConn.clientIP,
	}

	switch cmd.Command {
	case "subscribe":
		ws.handleSubscribe(wsConn, rpcCtx, cmd)
	case "unsubscribe":
		ws.handleUnsubscribe(wsConn, rpcCtx, cmd)
	default:
		ws.handleRPCMethod(wsConn, rpcCtx, cmd)
	}
}

// handleSubscribe processes subscribe commands.
func (ws *WebSocketServer) handleSubscribe(wsConn *WebSocketConnection, ctx *RpcContext, cmd WebSocketCommand) {
	var request SubscriptionRequest
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &request); err != nil {
			ws.sendError(wsConn, RpcErrorInvalidParams("Invalid subscription parameters: "+err.Error()), cmd.ID)
			return
		}
	}

	if rpcErr := ws.subscriptionManager.HandleSubscribe(wsConn.Connection, request); rpcErr != nil {
		ws.sendError(wsConn, rpcErr, cmd.ID)
		return
	}

	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     cmd.ID,
		Status: "success",
		Result: map[string]interface{}{
			"streams":  request.Streams,
			"accounts": request.Accounts,
		},
		ApiVersion: ctx.ApiVersion,
	})
}

// handleUnsubscribe processes unsubscribe commands.
func (ws *WebSocketServer) handleUnsubscribe(wsConn *WebSocketConnection, ctx *RpcContext, cmd WebSocketCommand) {
	var request SubscriptionRequest
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &request); err != nil {
			ws.sendError(wsConn, RpcErrorInvalidParams("Invalid subscription parameters: "+err.Error()), cmd.ID)
			return
		}
	}

	if rpcErr := ws.subscriptionManager.HandleUnsubscribe(wsConn.Connection, request); rpcErr != nil {
		ws.sendError(wsConn, rpcErr, cmd.ID)
		return
	}

	ws.sendResponse(wsConn, WebSocketResponse{
		Type:       "response",
		ID:         cmd.ID,
		Status:     "success",
		Result:     map[string]interface{}{"unsubscribed": true},
		ApiVersion: ctx.ApiVersion,
	})
}

// handleRPCMethod dispatches a regular method call through the shared
// registry. Role and API version checks happen in executeMethod.
func (ws *WebSocketServer) handleRPCMethod(wsConn *WebSocketConnection, ctx *RpcContext, cmd WebSocketCommand) {
	result, rpcErr := ws.server.executeMethod(cmd.Command, cmd.Params, ctx)
	if rpcErr != nil {
		ws.sendError(wsConn, rpcErr, cmd.ID)
		return
	}

	ws.sendResponse(wsConn, WebSocketResponse{
		Type:       "response",
		ID:         cmd.ID,
		Status:     "success",
		Result:     result,
		ApiVersion: ctx.ApiVersion,
	})
}

// sendResponse queues a response on the connection.
func (ws *WebSocketServer) sendResponse(wsConn *WebSocketConnection, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		ws.log.Error("failed to marshal websocket response", zap.Error(err))
		return
	}
	ws.queue(wsConn, data)
}

// sendError queues an error response. Error fields sit at the top
// level on the WebSocket surface.
func (ws *WebSocketServer) sendError(wsConn *WebSocketConnection, rpcErr *RpcError, id interface{}) {
	response := map[string]interface{}{
		"type":          "response",
		"status":        "error",
		"error":         rpcErr.ErrorString,
		"error_code":    rpcErr.Code,
		"error_message": rpcErr.Message,
	}
	if id != nil {
		response["id"] = id
	}

	data, err := json.Marshal(response)
	if err != nil {
		ws.log.Error("failed to marshal websocket error", zap.Error(err))
		return
	}
	ws.queue(wsConn, data)
}

// queue hands data to the write pump. A connection whose queue is full
// is torn down rather than allowed to block the caller.
func (ws *WebSocketServer) queue(wsConn *WebSocketConnection, data []byte) {
	select {
	case wsConn.SendChannel <- data:
	case <-wsConn.ctx.Done():
	default:
		ws.log.Warn("websocket send queue full, closing connection", zap.String("conn", wsConn.ID))
		ws.closeConnection(wsConn)
	}
}

// closeConnection tears a connection down. Safe to call from both
// pumps; only the first call does the work.
func (ws *WebSocketServer) closeConnection(wsConn *WebSocketConnection) {
	wsConn.closeOnce.Do(func() {
		wsConn.cancel()

		ws.connectionsMutex.Lock()
		delete(ws.connections, wsConn.ID)
		ws.connectionsMutex.Unlock()

		ws.subscriptionManager.RemoveConnection(wsConn.ID)
		wsConn.conn.Close()

		ws.log.Debug("websocket connection closed", zap.String("conn", wsConn.ID))
	})
}

// CloseAll tears down every open connection. Called on shutdown.
func (ws *WebSocketServer) CloseAll() {
	ws.connectionsMutex.RLock()
	conns := make([]*WebSocketConnection, 0, len(ws.connections))
	for _, conn := range ws.connections {
		conns = append(conns, conn)
	}
	ws.connectionsMutex.RUnlock()

	for _, conn := range conns {
		ws.closeConnection(conn)
	}
}
