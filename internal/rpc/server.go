// Package rpc exposes the ticket ledger over HTTP JSON-RPC and pushes
// committed-change events to websocket subscribers.
package rpc

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/venuecore/ticketd/internal/core/ledger"
	"github.com/venuecore/ticketd/internal/storage/salesindex"
)

// Request is the wire request format: {"method": "...", "params": [{...}]}.
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// Context carries per-request information into method handlers.
type Context struct {
	Context  context.Context
	IsAdmin  bool
	ClientIP string
}

// HandlerFunc executes one method.
type HandlerFunc func(ctx *Context, params json.RawMessage) (any, *Error)

type methodDef struct {
	handler HandlerFunc
	admin   bool
}

// Server handles HTTP JSON-RPC requests against a ledger core. Admin
// methods are reachable only from loopback addresses.
type Server struct {
	core    *ledger.Core
	sales   *salesindex.Index
	methods map[string]methodDef
	started time.Time

	// now supplies operation timestamps; overridable in tests.
	now func() uint64
}

// NewServer builds a server with all methods registered. sales may be
// nil when no reporting index is configured.
func NewServer(core *ledger.Core, sales *salesindex.Index) *Server {
	s := &Server{
		core:    core,
		sales:   sales,
		methods: make(map[string]methodDef),
		started: time.Now(),
		now:     func() uint64 { return uint64(time.Now().Unix()) },
	}
	s.registerAllMethods()
	return s
}

func (s *Server) register(name string, h HandlerFunc) {
	s.methods[name] = methodDef{handler: h}
}

func (s *Server) registerAdmin(name string, h HandlerFunc) {
	s.methods[name] = methodDef{handler: h, admin: true}
}

// Methods lists the registered method names.
func (s *Server) Methods() []string {
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	return names
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, &Error{Code: codeInternal, ErrorString: "internal", Message: "failed to read request body"})
		return
	}
	defer r.Body.Close()

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeError(w, &Error{Code: codeInvalidJSON, ErrorString: "jsonInvalid", Message: "invalid JSON: " + err.Error()})
		return
	}
	if request.Method == "" {
		s.writeError(w, &Error{Code: codeInvalidParams, ErrorString: "missingCommand", Message: "missing method field"})
		return
	}

	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	ip := clientIP(r)
	ctx := &Context{
		Context:  r.Context(),
		IsAdmin:  isLoopback(ip),
		ClientIP: ip,
	}

	result, rpcErr := s.execute(request.Method, params, ctx)
	if rpcErr != nil {
		s.writeError(w, rpcErr)
		return
	}
	s.writeResult(w, result)
}

func (s *Server) execute(method string, params json.RawMessage, ctx *Context) (any, *Error) {
	def, ok := s.methods[method]
	if !ok {
		return nil, errMethodNotFound(method)
	}
	if def.admin && !ctx.IsAdmin {
		return nil, errForbidden(method)
	}
	return def.handler(ctx, params)
}

// writeResult flattens the handler result into the response's result
// object alongside the status field.
func (s *Server) writeResult(w http.ResponseWriter, result any) {
	resultObj := map[string]any{"status": "success"}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			s.writeError(w, &Error{Code: codeInternal, ErrorString: "internal", Message: err.Error()})
			return
		}
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err == nil {
			for k, v := range fields {
				resultObj[k] = v
			}
		} else {
			resultObj["data"] = result
		}
	}
	s.write(w, map[string]any{"result": resultObj})
}

func (s *Server) writeError(w http.ResponseWriter, rpcErr *Error) {
	s.write(w, map[string]any{
		"result": map[string]any{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		},
	})
}

func (s *Server) write(w http.ResponseWriter, response any) {
	data, err := json.Marshal(response)
	if err != nil {
		log.Printf("rpc: marshal response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
