package handler

import "github.com/google/wire"

var ProviderSet = wire.NewSet(
	NewProxyHandler,
	NewProxyConfigHandler,
	NewRequestLogHandler,
	NewAuthHandler,
	NewHealthHandler,
)
