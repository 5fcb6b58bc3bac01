package api

import (
	"log/slog"

	"devspace-operator/assert"
	"devspace-operator/core"
	"devspace-operator/interfaces"
)

var httpLogger *slog.Logger
var config interfaces.ConfigModule
var lifecycle *core.LifecycleController
var tenants *core.TenantManager

func Setup(logManager interfaces.LogManager, configModule interfaces.ConfigModule, lifecycleController *core.LifecycleController, tenantManager *core.TenantManager) {
	assert.Assert(logManager != nil, "logManager must not be nil")
	assert.Assert(configModule != nil, "configModule must not be nil")
	assert.Assert(lifecycleController != nil, "lifecycleController must not be nil")
	assert.Assert(tenantManager != nil, "tenantManager must not be nil")

	httpLogger = logManager.CreateLogger("http")
	config = configModule
	lifecycle = lifecycleController
	tenants = tenantManager
}
