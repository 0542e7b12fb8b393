// Package server runs the sofa services: a CouchDB style HTTP API and a
// JSON-RPC 2.0 API over TCP, both backed by one storage.Store.
//
// # Configuration
//
// Config is loaded from YAML (LoadConfig). Each section is optional:
//
//	http:
//	  addr: 127.0.0.1:5984
//	  maxBodyBytes: 8388608
//	  shutdownTimeout: 5s
//	rpc:
//	  addr: 127.0.0.1:5985
//	store:
//	  maxRetries: 128
//	  backoff: 0s
//	ids:
//	  algorithm: random
//	validators:
//	  - name: priced
//	    databases: "shop*"
//	    rule: deleted || doc.price > 0
//	    message: products need a price
//
// Validator rules are expr-lang boolean expressions evaluated against
// db, id, doc (the document being written), old (the document it replaces,
// or nil) and deleted. Numbers in doc and old are float64.
//
// # Related Packages
//
//   - github.com/signadot/sofa/system/sofad/api - Wire types and error codes
//   - github.com/signadot/sofa/system/sofad/storage - Storage layer
//   - github.com/signadot/sofa/system/sofad/client - JSON-RPC client
package server
