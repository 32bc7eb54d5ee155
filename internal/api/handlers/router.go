package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/api/middleware"
	"github.com/rs/zerolog"
)

// RouterConfig assembles the gateway.
type RouterConfig struct {
	Engine   Engine
	Receipts ReceiptProposer
	APIKey   string
	Logger   zerolog.Logger
}

// NewRouter returns the gateway handler with its middleware applied.
func NewRouter(cfg RouterConfig) http.Handler {
	tools := NewToolsHandler(cfg.Engine, cfg.Receipts, cfg.Logger)
	exports := NewExportHandler(cfg.Engine, cfg.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tools", tools.ListTools)
	mux.HandleFunc("POST /tools/{name}", tools.Call)
	mux.HandleFunc("GET /api/export", exports.Export)
	mux.HandleFunc("GET /health", Health(time.Now))

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recovery(cfg.Logger),
		middleware.Logger(cfg.Logger),
		middleware.CORS,
		middleware.Auth(cfg.APIKey, "/health"),
	)
}
