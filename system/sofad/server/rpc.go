package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/segmentio/encoding/json"
	"github.com/signadot/sofa/debug"
	"github.com/signadot/sofa/system/sofad/api"
	"go.lsp.dev/jsonrpc2"
)

// RPCListener serves JSON-RPC 2.0 over TCP, one connection per client.
type RPCListener struct {
	listener net.Listener
	server   *Server

	// Session management
	sessions   map[string]jsonrpc2.Conn
	sessionsMu sync.RWMutex
	sessionSeq atomic.Int64

	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewRPCListener creates a new JSON-RPC listener.
func NewRPCListener(addr string, server *Server) (*RPCListener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &RPCListener{
		listener: listener,
		server:   server,
		sessions: make(map[string]jsonrpc2.Conn),
	}, nil
}

// Addr returns the listener's network address.
func (l *RPCListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts connections and serves each on its own goroutine.
// Blocks until Close is called.
func (l *RPCListener) Serve(ctx context.Context) error {
	l.server.Spec.Log.Info("RPC listener started", "addr", l.listener.Addr().String())

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			l.server.Spec.Log.Error("accept error", "error", err)
			continue
		}

		l.wg.Add(1)
		go l.handleConnection(ctx, conn)
	}
}

func (l *RPCListener) handleConnection(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()

	seq := l.sessionSeq.Add(1)
	sessionID := fmt.Sprintf("rpc-%d", seq)
	log := l.server.Spec.Log.With("session", sessionID)
	log.Debug("new RPC connection", "remote", conn.RemoteAddr().String())

	jc := jsonrpc2.NewConn(jsonrpc2.NewStream(conn))

	l.sessionsMu.Lock()
	l.sessions[sessionID] = jc
	l.sessionsMu.Unlock()

	jc.Go(ctx, l.server.handleRPC)
	// Close may have swept the sessions before this one was added.
	if l.closed.Load() {
		jc.Close()
	}
	<-jc.Done()
	if err := jc.Err(); err != nil && !errors.Is(err, io.EOF) && !l.closed.Load() {
		log.Error("session error", "error", err)
	}

	l.sessionsMu.Lock()
	delete(l.sessions, sessionID)
	l.sessionsMu.Unlock()

	log.Debug("session ended", "active", l.SessionCount())
}

// Close shuts down the listener and all sessions.
func (l *RPCListener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}

	if err := l.listener.Close(); err != nil {
		l.server.Spec.Log.Error("error closing listener", "error", err)
	}

	l.sessionsMu.RLock()
	for _, jc := range l.sessions {
		jc.Close()
	}
	l.sessionsMu.RUnlock()

	l.wg.Wait()

	l.server.Spec.Log.Info("RPC listener stopped")
	return nil
}

// SessionCount returns the number of active sessions.
func (l *RPCListener) SessionCount() int {
	l.sessionsMu.RLock()
	defer l.sessionsMu.RUnlock()
	return len(l.sessions)
}

// handleRPC dispatches one request. It always replies and only returns
// the error of sending the reply, which ends the session.
func (s *Server) handleRPC(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if debug.RPC() {
		debug.Logf("rpc <- %s %s\n", req.Method(), req.Params())
	}
	res, err := s.callRPC(req)
	method := req.Method()
	if errors.Is(err, jsonrpc2.ErrMethodNotFound) {
		method = "unknown"
	}
	s.metrics.rpc(method, err)
	if err != nil {
		err = rpcError(err)
	}
	if debug.RPC() {
		debug.Logf("rpc -> %s err=%v ", req.Method(), err)
		debug.LogAny(res)
	}
	return reply(ctx, res, err)
}

func (s *Server) callRPC(req jsonrpc2.Request) (any, error) {
	store := s.Spec.Store
	switch req.Method() {
	case api.MethodListDatabases:
		return store.ListDatabases(), nil

	case api.MethodCreateDatabase:
		var p api.DatabaseParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		if err := checkDatabaseName(p.DB); err != nil {
			return nil, err
		}
		if err := store.CreateDatabase(p.DB); err != nil {
			return nil, err
		}
		return api.OK{OK: true}, nil

	case api.MethodDescribeDatabase:
		var p api.DatabaseParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		info, err := store.DescribeDatabase(p.DB)
		if err != nil {
			return nil, err
		}
		return api.FromDatabaseInfo(info), nil

	case api.MethodDeleteDatabase:
		var p api.DatabaseParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		if err := store.DeleteDatabase(p.DB); err != nil {
			return nil, err
		}
		return api.OK{OK: true}, nil

	case api.MethodGetDocument:
		var p api.DocumentParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return store.GetDocument(p.DB, p.ID)

	case api.MethodPutDocument:
		var p api.PutDocumentParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		d, err := store.PutDocument(p.DB, p.ID, p.Doc)
		if err != nil {
			return nil, err
		}
		return api.FromStored(d), nil

	case api.MethodPostDocument:
		var p api.PostDocumentParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		d, err := store.PostDocument(p.DB, p.Doc)
		if err != nil {
			return nil, err
		}
		return api.FromStored(d), nil

	case api.MethodDeleteDocument:
		var p api.DocumentParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		d, err := store.DeleteDocument(p.DB, p.ID, p.Rev)
		if err != nil {
			return nil, err
		}
		return api.FromStored(d), nil

	case api.MethodBulkDocs:
		var p api.BulkDocsParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return s.bulkDocs(p.DB, p.BulkDocsRequest)

	case api.MethodAllDocs:
		var p api.AllDocsParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		res, err := store.AllDocs(p.DB, p.Options())
		if err != nil {
			return nil, err
		}
		return api.FromAllDocs(res, p.IncludeDocs), nil

	case api.MethodChanges:
		var p api.ChangesParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		res, err := store.Changes(p.DB, p.Since, p.Limit)
		if err != nil {
			return nil, err
		}
		return api.FromChanges(res), nil

	case api.MethodUUIDs:
		var p api.UUIDsParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return s.uuids(p.Count)
	}
	return nil, fmt.Errorf("%q: %w", req.Method(), jsonrpc2.ErrMethodNotFound)
}

func decodeParams(req jsonrpc2.Request, p any) error {
	params := req.Params()
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, p); err != nil {
		return jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%s: %v", req.Method(), err)
	}
	return nil
}

// rpcError keeps protocol errors and encodes the others as api errors.
func rpcError(err error) error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	text, _ := api.FromError(err).MarshalText()
	return jsonrpc2.NewError(api.RPCErrorCode, string(text))
}

// bulkDocs is shared by the HTTP and RPC services.
func (s *Server) bulkDocs(db string, req api.BulkDocsRequest) ([]api.DocResult, error) {
	res, err := s.Spec.Store.BulkDocs(db, req.Docs, req.AllOrNothing)
	if err != nil {
		return nil, err
	}
	out := make([]api.DocResult, len(res))
	for i, r := range res {
		out[i] = api.FromBulkResult(r)
	}
	return out, nil
}

func (s *Server) uuids(count int) (api.UUIDs, error) {
	if count == 0 {
		count = 1
	}
	if count < 0 || count > s.Spec.Config.IDs.MaxUUIDs {
		return api.UUIDs{}, api.NewError(api.ErrCodeBadRequest,
			fmt.Sprintf("count must be between 1 and %d", s.Spec.Config.IDs.MaxUUIDs))
	}
	return api.UUIDs{UUIDs: s.Spec.Store.UUIDs(count)}, nil
}
