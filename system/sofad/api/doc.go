// Package api provides the wire types of the sofa HTTP and JSON-RPC
// services and the mapping of storage errors to error codes.
//
// # Related Packages
//
//   - github.com/signadot/sofa/system/sofad/server - Server implementation
//   - github.com/signadot/sofa/system/sofad/storage - Storage layer
package api
