package core

import (
	"context"
	"log/slog"
	"time"

	"devspace-operator/assert"
	"devspace-operator/dtos"
	"devspace-operator/errdefs"
	"devspace-operator/interfaces"
	"devspace-operator/kubernetes"
	"devspace-operator/store"

	"github.com/patrickmn/go-cache"
)

// Reconciler pulls live cluster state back into the persisted
// workspace record. The passive path (Refresh) runs on every read and
// never fails the read; the active path (Sync) overwrites status,
// image and replica count and surfaces cluster errors.
type Reconciler struct {
	logger       *slog.Logger
	recordStore  *store.Store
	metricsCache *cache.Cache
	mirror       *StatusMirror
	locks        *keyedMutex
}

// mirror may be nil; mirroring is then disabled.
func NewReconciler(logManager interfaces.LogManager, recordStore *store.Store, mirror *StatusMirror) *Reconciler {
	assert.Assert(logManager != nil, "logManager must not be nil")
	assert.Assert(recordStore != nil, "recordStore must not be nil")

	return &Reconciler{
		logger:       logManager.CreateLogger("reconciler"),
		recordStore:  recordStore,
		metricsCache: cache.New(15*time.Second, time.Minute),
		mirror:       mirror,
		locks:        newKeyedMutex(),
	}
}

// Refresh overlays the record with live status and, when running,
// usage metrics. The record is persisted only when the live status
// differs, and only after re-reading it under the per-workspace lock
// so a concurrent action is never clobbered with the caller's stale
// copy. A failed cluster read leaves the record untouched; a
// reconciliation failure never fails a read.
func (self *Reconciler) Refresh(ctx context.Context, workspace *dtos.WorkspaceDto) {
	namespace := kubernetes.GroupNamespaceName(workspace.GroupId)
	name := kubernetes.WorkspaceObjectName(workspace.Id)

	deploymentStatus, err := kubernetes.GetDeploymentStatus(ctx, namespace, name)
	if err != nil {
		self.logger.Warn("Reading live workload state failed", "workspaceId", workspace.Id, "error", err)
		return
	}

	liveStatus := kubernetes.DeriveWorkspaceStatus(deploymentStatus)
	var usage *dtos.UsageSnapshot
	if liveStatus == dtos.WorkspaceStatusRunning {
		usage = self.usage(ctx, namespace, name)
	}
	if usage != nil {
		workspace.Usage = usage
	}

	if liveStatus == workspace.Status {
		return
	}

	self.locks.Lock(workspace.Id)
	defer self.locks.Unlock(workspace.Id)

	current, err := store.Get[dtos.WorkspaceDto](self.recordStore, keyWorkspace, workspace.Id)
	if err != nil {
		self.logger.Warn("Re-reading record before reconcile failed", "workspaceId", workspace.Id, "error", err)
		return
	}
	if usage != nil {
		current.Usage = usage
	}
	if current.Status != liveStatus {
		current.Status = liveStatus
		err = self.persist(current)
		if err != nil {
			self.logger.Warn("Persisting reconciled status failed", "workspaceId", workspace.Id, "error", err)
			return
		}
	}
	*workspace = *current
}

// Sync force-overwrites status, image and replica count from the
// cluster and persists the record. Metrics failures are tolerated and
// simply omitted.
func (self *Reconciler) Sync(ctx context.Context, workspace *dtos.WorkspaceDto) (*dtos.WorkspaceDto, error) {
	namespace := kubernetes.GroupNamespaceName(workspace.GroupId)
	name := kubernetes.WorkspaceObjectName(workspace.Id)

	deploymentStatus, err := kubernetes.GetDeploymentStatus(ctx, namespace, name)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "reading live workload state of %s", workspace.Id)
	}

	workspace.Status = kubernetes.DeriveWorkspaceStatus(deploymentStatus)
	if deploymentStatus.Found {
		workspace.Image = deploymentStatus.Image
		workspace.Replicas = deploymentStatus.DesiredReplicas
	}
	if workspace.Status == dtos.WorkspaceStatusRunning {
		if usage := self.usage(ctx, namespace, name); usage != nil {
			workspace.Usage = usage
		}
	}

	err = self.persist(workspace)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "persisting synced record of %s", workspace.Id)
	}
	return workspace, nil
}

func (self *Reconciler) usage(ctx context.Context, namespace string, name string) *dtos.UsageSnapshot {
	cacheKey := namespace + "/" + name
	if cached, ok := self.metricsCache.Get(cacheKey); ok {
		return cached.(*dtos.UsageSnapshot)
	}

	usage, err := kubernetes.WorkspaceUsage(ctx, namespace, name)
	if err != nil {
		self.logger.Debug("Reading workspace metrics failed", "namespace", namespace, "name", name, "error", err)
		return nil
	}
	self.metricsCache.Set(cacheKey, usage, cache.DefaultExpiration)
	return usage
}

// persist writes the record and mirrors the status change when a
// mirror is configured.
func (self *Reconciler) persist(workspace *dtos.WorkspaceDto) error {
	err := self.recordStore.Set(workspace, keyWorkspace, workspace.Id)
	if err != nil {
		return err
	}
	if self.mirror != nil {
		self.mirror.PublishStatus(workspace.Id, workspace.Status)
	}
	return nil
}
