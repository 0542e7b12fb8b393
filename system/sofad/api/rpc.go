package api

// JSON-RPC method names.
const (
	MethodListDatabases    = "sofa.listDatabases"
	MethodCreateDatabase   = "sofa.createDatabase"
	MethodDescribeDatabase = "sofa.describeDatabase"
	MethodDeleteDatabase   = "sofa.deleteDatabase"
	MethodGetDocument      = "sofa.getDocument"
	MethodPutDocument      = "sofa.putDocument"
	MethodPostDocument     = "sofa.postDocument"
	MethodDeleteDocument   = "sofa.deleteDocument"
	MethodBulkDocs         = "sofa.bulkDocs"
	MethodAllDocs          = "sofa.allDocs"
	MethodChanges          = "sofa.changes"
	MethodUUIDs            = "sofa.uuids"
)

// RPCErrorCode is the JSON-RPC error code of application errors. The
// error message is the text form of an *Error.
const RPCErrorCode = -32000
