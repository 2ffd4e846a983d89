package service

import "github.com/google/wire"

var ProviderSet = wire.NewSet(
	NewHealthService,
	NewAuthService,
	NewProxyConfigService,
	NewProxyService,
	NewAuditLogWriter,
	NewRequestLogService,
)
