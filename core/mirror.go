package core

import (
	"context"
	"log/slog"

	"devspace-operator/dtos"
	"devspace-operator/interfaces"
	"devspace-operator/store"

	"github.com/go-redis/redis/v8"
)

const mirrorKeyPrefix = "workspace-status"
const mirrorChannel = "workspace-status-changed"

// StatusMirror publishes persisted workspace status changes to a
// valkey/redis instance for external consumers. Entirely optional:
// NewStatusMirror returns nil when no mirror address is configured and
// every call site treats a nil mirror as disabled.
type StatusMirror struct {
	ctx    context.Context
	logger *slog.Logger
	client *redis.Client
}

func NewStatusMirror(logManager interfaces.LogManager, configModule interfaces.ConfigModule) *StatusMirror {
	addr, err := configModule.TryGet("DSO_MIRROR_ADDR")
	if err != nil || addr == "" {
		return nil
	}

	logger := logManager.CreateLogger("mirror")
	password, _ := configModule.TryGet("DSO_MIRROR_PASSWORD")

	self := &StatusMirror{
		ctx:    context.Background(),
		logger: logger,
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
	}

	err = self.client.Ping(self.ctx).Err()
	if err != nil {
		// keep running; the mirror is an observer, not a dependency
		logger.Warn("Status mirror unreachable", "addr", addr, "error", err)
	} else {
		logger.Info("Status mirror connected", "addr", addr)
	}
	return self
}

// PublishStatus mirrors one status value and notifies subscribers.
// Failures are logged and swallowed.
func (self *StatusMirror) PublishStatus(workspaceId string, status dtos.WorkspaceStatus) {
	key := store.CreateKey(mirrorKeyPrefix, workspaceId)
	err := self.client.Set(self.ctx, key, string(status), 0).Err()
	if err != nil {
		self.logger.Debug("Mirroring status failed", "workspaceId", workspaceId, "error", err)
		return
	}
	err = self.client.Publish(self.ctx, mirrorChannel, workspaceId).Err()
	if err != nil {
		self.logger.Debug("Publishing status change failed", "workspaceId", workspaceId, "error", err)
	}
}

// Forget drops the mirrored entry of a deleted workspace.
func (self *StatusMirror) Forget(workspaceId string) {
	err := self.client.Del(self.ctx, store.CreateKey(mirrorKeyPrefix, workspaceId)).Err()
	if err != nil {
		self.logger.Debug("Dropping mirrored status failed", "workspaceId", workspaceId, "error", err)
	}
}

func (self *StatusMirror) Close() error {
	return self.client.Close()
}
