package rpc

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Server handles HTTP JSON-RPC requests.
type Server struct {
	registry *MethodRegistry
	adminIPs map[string]struct{}
	log      *zap.Logger
}

// NewServer creates an RPC server with every method registered.
// Requests from the given adminIPs run with the admin role; everyone
// else is a guest.
func NewServer(log *zap.Logger, adminIPs ...string) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	server := &Server{
		registry: NewMethodRegistry(),
		adminIPs: make(map[string]struct{}, len(adminIPs)),
		log:      log,
	}
	for _, ip := range adminIPs {
		server.adminIPs[normalizeIP(ip)] = struct{}{}
	}

	server.registerAllMethods()

	return server
}

// Registry returns the method registry, shared with the WebSocket
// server so both surfaces dispatch the same methods.
func (s *Server) Registry() *MethodRegistry {
	return s.registry
}

// XrplRequest is the HTTP request envelope:
// {"method": "name", "params": [{...}]}.
type XrplRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetRequest(w, r)
		return
	}

	s.handlePostRequest(w, r)
}

// handleGetRequest serves GET queries like /?command=server_info.
// Parameter-less methods only; POST carries everything else.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("command")
	if method == "" {
		method = "server_info"
	}

	ctx := s.newContext(r)
	result, rpcErr := s.executeMethod(method, nil, ctx)
	s.writeXrplResponse(w, nil, result, rpcErr)
}

// handlePostRequest serves the JSON-RPC envelope.
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeXrplError(w, nil, "internal", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var request XrplRequest
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeXrplError(w, nil, "jsonInvalid", "Invalid JSON: "+err.Error())
		return
	}

	if request.Method == "" {
		s.writeXrplError(w, nil, "missingCommand", "Missing method field")
		return
	}

	// Params is an array with a single object.
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	ctx := s.newContext(r)

	// The api_version rides inside the params object.
	if params != nil {
		var paramsMap map[string]interface{}
		if err := json.Unmarshal(params, &paramsMap); err == nil {
			if apiVer, ok := paramsMap["api_version"]; ok {
				if ver, ok := apiVer.(float64); ok {
					ctx.ApiVersion = int(ver)
				}
			}
		}
	}

	result, rpcErr := s.executeMethod(request.Method, params, ctx)

	// Echo the request back on errors so clients can correlate.
	var requestObj interface{}
	if rpcErr != nil {
		reqMap := map[string]interface{}{"command": request.Method}
		if params != nil {
			var paramFields map[string]interface{}
			if err := json.Unmarshal(params, &paramFields); err == nil {
				for k, v := range paramFields {
					reqMap[k] = v
				}
			}
		}
		requestObj = reqMap
	}

	s.writeXrplResponse(w, requestObj, result, rpcErr)
}

// newContext builds the per-request context. The role comes from the
// client IP against the configured admin set.
func (s *Server) newContext(r *http.Request) *RpcContext {
	clientIP := getClientIP(r)
	role := RoleGuest
	if _, ok := s.adminIPs[normalizeIP(clientIP)]; ok {
		role = RoleAdmin
	}

	return &RpcContext{
		Context:    r.Context(),
		Role:       role,
		ApiVersion: DefaultApiVersion,
		IsAdmin:    role == RoleAdmin,
		ClientIP:   clientIP,
	}
}

// executeMethod dispatches one method call.
func (s *Server) executeMethod(method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError) {
	handler, exists := s.registry.Get(method)
	if !exists {
		return nil, RpcErrorMethodNotFound(method)
	}

	if ctx.Role < handler.RequiredRole() {
		return nil, RpcErrorCommandUntrusted(method)
	}

	supportedVersions := handler.SupportedApiVersions()
	if len(supportedVersions) > 0 {
		supported := false
		for _, version := range supportedVersions {
			if ctx.ApiVersion == version {
				supported = true
				break
			}
		}
		if !supported {
			return nil, RpcErrorInvalidApiVersion(strconv.Itoa(ctx.ApiVersion))
		}
	}

	return handler.Handle(ctx, params)
}

// writeXrplResponse writes the response envelope. result.status is
// "success" or "error"; error responses carry error, error_code and
// error_message inside the result object.
func (s *Server) writeXrplResponse(w http.ResponseWriter, request interface{}, result interface{}, rpcErr *RpcError) {
	response := make(map[string]interface{})

	if rpcErr != nil {
		resultObj := map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if request != nil {
			resultObj["request"] = request
		}
		response["result"] = resultObj
	} else {
		if resultMap, ok := result.(map[string]interface{}); ok {
			resultMap["status"] = "success"
			response["result"] = resultMap
		} else {
			response["result"] = map[string]interface{}{
				"status": "success",
				"data":   result,
			}
		}
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		s.log.Error("failed to marshal rpc response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(responseData)
}

// writeXrplError writes an error envelope for requests that failed
// before method dispatch.
func (s *Server) writeXrplError(w http.ResponseWriter, request interface{}, errorCode string, message string) {
	resultObj := map[string]interface{}{
		"status":        "error",
		"error":         errorCode,
		"error_message": message,
	}
	if request != nil {
		resultObj["request"] = request
	}

	responseData, err := json.Marshal(map[string]interface{}{"result": resultObj})
	if err != nil {
		s.log.Error("failed to marshal rpc error response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(responseData)
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// normalizeIP folds the loopback spellings together so an admin list
// entry of "localhost" matches however the connection arrives.
func normalizeIP(ip string) string {
	ip = strings.Trim(ip, "[]")
	switch ip {
	case "localhost", "::1":
		return "127.0.0.1"
	default:
		return ip
	}
}
