package server

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signadot/sofa/system/sofad/storage"
)

// Spec holds the runtime specification for the server.
// Config contains the serializable settings loaded from a file.
//
// When Store is nil, New builds one from Config. A Store supplied by the
// caller is used as is: the store, ids and validators sections of Config
// do not apply to it.
type Spec struct {
	Config   *Config
	Store    *storage.Store
	Log      *slog.Logger
	Registry *prometheus.Registry
}
