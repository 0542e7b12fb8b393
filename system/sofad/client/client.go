// Package client is a JSON-RPC client for the sofa server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/api"
	"go.lsp.dev/jsonrpc2"
)

// Client calls a sofa server over one TCP connection. It is safe for
// concurrent use.
type Client struct {
	conn jsonrpc2.Conn
}

// Dial connects to the JSON-RPC service at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(nc))
	conn.Go(context.Background(), jsonrpc2.MethodNotFoundHandler)
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.conn.Done()
	return err
}

// call invokes method and decodes its result. Application errors come
// back as *api.Error.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	_, err := c.conn.Call(ctx, method, params, result)
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) && rpcErr.Code == api.RPCErrorCode {
		apiErr := &api.Error{}
		if uerr := apiErr.UnmarshalText([]byte(rpcErr.Message)); uerr == nil {
			return apiErr
		}
	}
	return fmt.Errorf("%s: %w", method, err)
}

func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	var res []string
	if err := c.call(ctx, api.MethodListDatabases, struct{}{}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) CreateDatabase(ctx context.Context, db string) error {
	return c.call(ctx, api.MethodCreateDatabase, api.DatabaseParams{DB: db}, nil)
}

func (c *Client) DescribeDatabase(ctx context.Context, db string) (api.DatabaseInfo, error) {
	var res api.DatabaseInfo
	err := c.call(ctx, api.MethodDescribeDatabase, api.DatabaseParams{DB: db}, &res)
	return res, err
}

func (c *Client) DeleteDatabase(ctx context.Context, db string) error {
	return c.call(ctx, api.MethodDeleteDatabase, api.DatabaseParams{DB: db}, nil)
}

// GetDocument returns the current document at id, which may be a
// tombstone.
func (c *Client) GetDocument(ctx context.Context, db, id string) (doc.Document, error) {
	var res doc.Document
	err := c.call(ctx, api.MethodGetDocument, api.DocumentParams{DB: db, ID: id}, &res)
	return res, err
}

func (c *Client) PutDocument(ctx context.Context, db, id string, d doc.Document) (api.DocResult, error) {
	var res api.DocResult
	err := c.call(ctx, api.MethodPutDocument, api.PutDocumentParams{DB: db, ID: id, Doc: d}, &res)
	return res, err
}

func (c *Client) PostDocument(ctx context.Context, db string, d doc.Document) (api.DocResult, error) {
	var res api.DocResult
	err := c.call(ctx, api.MethodPostDocument, api.PostDocumentParams{DB: db, Doc: d}, &res)
	return res, err
}

func (c *Client) DeleteDocument(ctx context.Context, db, id, rev string) (api.DocResult, error) {
	var res api.DocResult
	err := c.call(ctx, api.MethodDeleteDocument, api.DocumentParams{DB: db, ID: id, Rev: rev}, &res)
	return res, err
}

func (c *Client) BulkDocs(ctx context.Context, db string, docs []doc.Document, allOrNothing bool) ([]api.DocResult, error) {
	var res []api.DocResult
	err := c.call(ctx, api.MethodBulkDocs, api.BulkDocsParams{
		DB:              db,
		BulkDocsRequest: api.BulkDocsRequest{Docs: docs, AllOrNothing: allOrNothing},
	}, &res)
	return res, err
}

func (c *Client) AllDocs(ctx context.Context, p api.AllDocsParams) (api.AllDocsResponse, error) {
	var res api.AllDocsResponse
	err := c.call(ctx, api.MethodAllDocs, p, &res)
	return res, err
}

func (c *Client) Changes(ctx context.Context, db string, since uint64, limit int) (api.ChangesResponse, error) {
	var res api.ChangesResponse
	err := c.call(ctx, api.MethodChanges, api.ChangesParams{DB: db, Since: since, Limit: limit}, &res)
	return res, err
}

func (c *Client) UUIDs(ctx context.Context, count int) ([]string, error) {
	var res api.UUIDs
	if err := c.call(ctx, api.MethodUUIDs, api.UUIDsParams{Count: count}, &res); err != nil {
		return nil, err
	}
	return res.UUIDs, nil
}
