package core

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"devspace-operator/assert"
	"devspace-operator/dtos"
	"devspace-operator/errdefs"
	"devspace-operator/interfaces"
	"devspace-operator/kubernetes"
	"devspace-operator/logging"
	"devspace-operator/store"
)

// workspaceTransitions is the full state machine as data: for every
// action the set of statuses it may leave from and the status it moves
// to. A missing entry is a rejected transition.
var workspaceTransitions = map[dtos.WorkspaceAction]map[dtos.WorkspaceStatus]dtos.WorkspaceStatus{
	dtos.WorkspaceActionStart: {
		dtos.WorkspaceStatusStopped:  dtos.WorkspaceStatusStarting,
		dtos.WorkspaceStatusStarting: dtos.WorkspaceStatusStarting,
		dtos.WorkspaceStatusStopping: dtos.WorkspaceStatusStarting,
		dtos.WorkspaceStatusError:    dtos.WorkspaceStatusStarting,
	},
	dtos.WorkspaceActionStop: {
		dtos.WorkspaceStatusStarting: dtos.WorkspaceStatusStopping,
		dtos.WorkspaceStatusRunning:  dtos.WorkspaceStatusStopping,
		dtos.WorkspaceStatusStopping: dtos.WorkspaceStatusStopping,
		dtos.WorkspaceStatusError:    dtos.WorkspaceStatusStopping,
	},
	// restart only ensures the workload is scaled up; it does not
	// replace running pods
	dtos.WorkspaceActionRestart: {
		dtos.WorkspaceStatusStopped:  dtos.WorkspaceStatusStarting,
		dtos.WorkspaceStatusStarting: dtos.WorkspaceStatusStarting,
		dtos.WorkspaceStatusRunning:  dtos.WorkspaceStatusStarting,
		dtos.WorkspaceStatusStopping: dtos.WorkspaceStatusStarting,
		dtos.WorkspaceStatusError:    dtos.WorkspaceStatusStarting,
	},
}

func nextStatus(action dtos.WorkspaceAction, current dtos.WorkspaceStatus) (dtos.WorkspaceStatus, error) {
	next, ok := workspaceTransitions[action][current]
	if !ok {
		return "", errdefs.Conflict("action %q is not allowed while workspace is %s", action, current)
	}
	return next, nil
}

// LifecycleController is the top level state machine sequencing tenant
// manager, provisioner, proxy synthesizer and reconciler in response
// to workspace requests. Concurrent operations on the same workspace
// id are serialized through a per-id mutex.
type LifecycleController struct {
	logger      *slog.Logger
	config      interfaces.ConfigModule
	recordStore *store.Store
	tenants     *TenantManager
	provisioner *Provisioner
	proxy       *ProxySynthesizer
	reconciler  *Reconciler
	probes      *probeRunner
	locks       *keyedMutex
}

func NewLifecycleController(
	logManager interfaces.LogManager,
	configModule interfaces.ConfigModule,
	recordStore *store.Store,
	tenants *TenantManager,
	provisioner *Provisioner,
	proxy *ProxySynthesizer,
	reconciler *Reconciler,
) *LifecycleController {
	assert.Assert(logManager != nil, "logManager must not be nil")
	assert.Assert(configModule != nil, "configModule must not be nil")
	assert.Assert(recordStore != nil, "recordStore must not be nil")
	assert.Assert(tenants != nil, "tenants must not be nil")
	assert.Assert(provisioner != nil, "provisioner must not be nil")
	assert.Assert(proxy != nil, "proxy must not be nil")
	assert.Assert(reconciler != nil, "reconciler must not be nil")

	logger := logManager.CreateLogger("lifecycle")

	probeDelay := 5 * time.Second
	if raw, err := configModule.TryGet("DSO_PROBE_DELAY_SECONDS"); err == nil && raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			logger.Warn("Ignoring invalid probe delay", "value", raw)
		} else {
			probeDelay = time.Duration(seconds) * time.Second
		}
	}

	return &LifecycleController{
		logger:      logger,
		config:      configModule,
		recordStore: recordStore,
		tenants:     tenants,
		provisioner: provisioner,
		proxy:       proxy,
		reconciler:  reconciler,
		probes:      newProbeRunner(logger, probeDelay),
		// shared with the reconciler so passive refreshes serialize
		// against actions on the same workspace id
		locks: reconciler.locks,
	}
}

// CreateWorkspace validates group membership, resolves sizing and
// image, persists the record in STOPPED and provisions the cluster
// objects. When provisioning fails the record is removed again and the
// error surfaced; a half-provisioned workspace is never visible.
func (self *LifecycleController) CreateWorkspace(ctx context.Context, userId string, request dtos.WorkspaceCreateRequest) (*dtos.WorkspaceDto, error) {
	err := validate.Struct(request)
	if err != nil {
		return nil, errdefs.Validation("invalid workspace request: %s", err)
	}

	user, err := self.tenants.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	group, err := self.tenants.GetGroup(ctx, request.GroupId)
	if err != nil {
		return nil, err
	}
	if !user.PlatformAdmin {
		_, err = self.tenants.GetMembership(ctx, group.Id, userId)
		if err != nil {
			return nil, errdefs.Authorization("user %s is not a member of group %s", userId, group.Id)
		}
	}

	resources, err := self.resolveResources(request)
	if err != nil {
		return nil, err
	}
	image := request.Image
	if image == "" {
		image = group.DefaultImage
	}
	if image == "" {
		image = self.config.Get("DSO_DEFAULT_WORKSPACE_IMAGE")
	}

	id := NewWorkspaceId()
	name := kubernetes.WorkspaceObjectName(id)
	accessToken := newAccessToken()
	logging.AddSecret(accessToken)

	workspace := dtos.WorkspaceDto{
		Id:          id,
		UserId:      userId,
		GroupId:     group.Id,
		DisplayName: request.DisplayName,
		Status:      dtos.WorkspaceStatusStopped,
		Image:       image,
		Resources:   resources,
		Replicas:    0,
		AccessToken: accessToken,
		Url:         kubernetes.RoutePathPrefix(name) + "/",
		CreatedAt:   time.Now(),
	}

	err = self.recordStore.Create(workspace, nil, keyWorkspace, id)
	if err != nil {
		if errors.Is(err, store.ErrKeyExists) {
			return nil, errdefs.Conflict("workspace %s already exists", id)
		}
		return nil, errdefs.Infrastructure(err, "persisting workspace %s", id)
	}

	err = self.provisioner.Create(ctx, WorkspaceProvisionSpec{
		WorkspaceId: id,
		GroupId:     group.Id,
		Namespace:   group.Namespace,
		Name:        name,
		Image:       image,
		AccessToken: accessToken,
		Resources:   resources,
		Quota:       group.Quota,
		Replicas:    0,
	})
	if err != nil {
		deleteErr := self.recordStore.Delete(nil, keyWorkspace, id)
		if deleteErr != nil {
			self.logger.Error("Removing record of failed workspace create", "workspaceId", id, "error", deleteErr)
		}
		return nil, errdefs.Infrastructure(err, "provisioning workspace %s", id)
	}

	self.logger.Info("Created workspace", "workspaceId", id, "groupId", group.Id, "userId", userId)
	return &workspace, nil
}

func (self *LifecycleController) resolveResources(request dtos.WorkspaceCreateRequest) (dtos.ResourceSizing, error) {
	if request.Resources != nil && !request.Resources.IsZero() {
		return *request.Resources, nil
	}

	tierName := request.Tier
	if tierName == "" {
		tierName = self.config.Get("DSO_DEFAULT_TIER")
	}
	tier, ok := dtos.BuiltinTiers[tierName]
	if !ok {
		return dtos.ResourceSizing{}, errdefs.Validation("unknown tier: %s", tierName)
	}
	return tier.Resources, nil
}

// ListWorkspaces filters by user and group, paginates and applies
// passive reconciliation to every returned record.
func (self *LifecycleController) ListWorkspaces(ctx context.Context, filter dtos.WorkspaceListFilter) ([]dtos.WorkspaceDto, error) {
	records, err := store.ListByPrefix[dtos.WorkspaceDto](self.recordStore, 0, 0, keyWorkspace)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "listing workspaces")
	}

	result := []dtos.WorkspaceDto{}
	skipped := 0
	for _, workspace := range records {
		if filter.UserId != "" && workspace.UserId != filter.UserId {
			continue
		}
		if filter.GroupId != "" && workspace.GroupId != filter.GroupId {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
		result = append(result, workspace)
	}

	for i := range result {
		self.reconciler.Refresh(ctx, &result[i])
	}
	return result, nil
}

func (self *LifecycleController) GetWorkspace(ctx context.Context, workspaceId string) (*dtos.WorkspaceDto, error) {
	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		return nil, err
	}
	self.reconciler.Refresh(ctx, workspace)
	return workspace, nil
}

// UpdateWorkspace patches display name, image and resources. Image and
// resource changes require a STOPPED workspace; the workload object is
// recreated in place with the new spec, still scaled to zero.
func (self *LifecycleController) UpdateWorkspace(ctx context.Context, workspaceId string, request dtos.WorkspaceUpdateRequest) (*dtos.WorkspaceDto, error) {
	err := validate.Struct(request)
	if err != nil {
		return nil, errdefs.Validation("invalid workspace patch: %s", err)
	}

	self.locks.Lock(workspaceId)
	defer self.locks.Unlock(workspaceId)

	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		return nil, err
	}

	reprovision := request.Image != nil || request.Resources != nil
	if reprovision && workspace.Status != dtos.WorkspaceStatusStopped {
		return nil, errdefs.Conflict("workspace %s must be stopped to change image or resources", workspaceId)
	}

	if request.DisplayName != nil {
		workspace.DisplayName = *request.DisplayName
	}
	if request.Image != nil {
		workspace.Image = *request.Image
	}
	if request.Resources != nil {
		workspace.Resources = *request.Resources
	}

	if reprovision {
		group, err := self.tenants.GetGroup(ctx, workspace.GroupId)
		if err != nil {
			return nil, err
		}
		name := kubernetes.WorkspaceObjectName(workspaceId)
		err = kubernetes.DeleteDeployment(ctx, group.Namespace, name)
		if err != nil {
			return nil, errdefs.Infrastructure(err, "replacing workload of %s", workspaceId)
		}
		err = kubernetes.CreateWorkspaceDeployment(ctx, group.Namespace, kubernetes.WorkspaceDeploymentSpec{
			WorkspaceId: workspaceId,
			GroupId:     workspace.GroupId,
			Name:        name,
			Image:       workspace.Image,
			Resources:   workspace.Resources,
			Replicas:    0,
			SecretName:  name,
		})
		if err != nil {
			return nil, errdefs.Infrastructure(err, "replacing workload of %s", workspaceId)
		}
	}

	err = self.recordStore.Set(workspace, keyWorkspace, workspaceId)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "persisting workspace %s", workspaceId)
	}
	return workspace, nil
}

// PerformAction runs one start/stop/restart transition: reject through
// the transition table, persist the transitional status and replica
// count, issue the scale call and schedule a delayed convergence probe.
// Any pending probe for the id is superseded first.
func (self *LifecycleController) PerformAction(ctx context.Context, workspaceId string, action dtos.WorkspaceAction) (*dtos.WorkspaceDto, error) {
	if !action.IsValid() {
		return nil, errdefs.Validation("invalid action: %q", action)
	}

	self.locks.Lock(workspaceId)
	defer self.locks.Unlock(workspaceId)

	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		return nil, err
	}

	next, err := nextStatus(action, workspace.Status)
	if err != nil {
		return nil, err
	}
	self.probes.Cancel(workspaceId)

	var replicas int32 = 1
	if action == dtos.WorkspaceActionStop {
		replicas = 0
	}

	now := time.Now()
	workspace.Status = next
	workspace.Replicas = replicas
	workspace.LastAccessedAt = &now

	err = self.reconciler.persist(workspace)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "persisting workspace %s", workspaceId)
	}

	namespace := kubernetes.GroupNamespaceName(workspace.GroupId)
	name := kubernetes.WorkspaceObjectName(workspaceId)
	err = self.provisioner.Scale(ctx, namespace, name, replicas)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "scaling workspace %s", workspaceId)
	}

	self.probes.Schedule(workspaceId, func(probeCtx context.Context) {
		self.probeStatus(probeCtx, workspaceId)
	})

	self.logger.Info("Performed workspace action", "workspaceId", workspaceId, "action", action, "status", next)
	return workspace, nil
}

// probeStatus is the delayed convergence probe: re-read live status
// and persist it if it moved on. Best effort, all failures logged.
func (self *LifecycleController) probeStatus(ctx context.Context, workspaceId string) {
	self.locks.Lock(workspaceId)
	defer self.locks.Unlock(workspaceId)

	if ctx.Err() != nil {
		return
	}
	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		// deleted in the meantime, nothing to converge
		return
	}

	namespace := kubernetes.GroupNamespaceName(workspace.GroupId)
	name := kubernetes.WorkspaceObjectName(workspaceId)
	deploymentStatus, err := kubernetes.GetDeploymentStatus(ctx, namespace, name)
	if err != nil {
		self.logger.Warn("Convergence probe failed", "workspaceId", workspaceId, "error", err)
		return
	}

	liveStatus := kubernetes.DeriveWorkspaceStatus(deploymentStatus)
	if liveStatus == workspace.Status {
		return
	}
	workspace.Status = liveStatus
	err = self.reconciler.persist(workspace)
	if err != nil {
		self.logger.Warn("Persisting probed status failed", "workspaceId", workspaceId, "error", err)
	}
}

// DeleteWorkspace requires owner, group admin or platform admin
// standing. Cluster teardown is best effort; the record is removed
// regardless of cluster-side warnings.
func (self *LifecycleController) DeleteWorkspace(ctx context.Context, userId string, workspaceId string) error {
	self.locks.Lock(workspaceId)
	defer self.locks.Unlock(workspaceId)

	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		return err
	}
	err = self.authorizeDelete(ctx, userId, workspace)
	if err != nil {
		return err
	}

	self.probes.Cancel(workspaceId)

	namespace := kubernetes.GroupNamespaceName(workspace.GroupId)
	name := kubernetes.WorkspaceObjectName(workspaceId)
	self.provisioner.Delete(ctx, namespace, workspaceId, name)

	err = self.recordStore.Delete(nil, keyWorkspace, workspaceId)
	if err != nil {
		return errdefs.Infrastructure(err, "removing workspace %s", workspaceId)
	}
	if self.reconciler.mirror != nil {
		self.reconciler.mirror.Forget(workspaceId)
	}

	self.logger.Info("Deleted workspace", "workspaceId", workspaceId, "userId", userId)
	return nil
}

func (self *LifecycleController) authorizeDelete(ctx context.Context, userId string, workspace *dtos.WorkspaceDto) error {
	if workspace.UserId == userId {
		return nil
	}
	user, err := self.tenants.GetUser(ctx, userId)
	if err == nil && user.PlatformAdmin {
		return nil
	}
	membership, err := self.tenants.GetMembership(ctx, workspace.GroupId, userId)
	if err == nil && membership.Role == dtos.GroupRoleAdmin {
		return nil
	}
	return errdefs.Authorization("user %s may not delete workspace %s", userId, workspace.Id)
}

// SyncWorkspace forces the active reconciliation path.
func (self *LifecycleController) SyncWorkspace(ctx context.Context, workspaceId string) (*dtos.WorkspaceDto, error) {
	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		return nil, err
	}
	return self.reconciler.Sync(ctx, workspace)
}

func (self *LifecycleController) GetMetrics(ctx context.Context, workspaceId string) (*dtos.UsageSnapshot, error) {
	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		return nil, err
	}

	namespace := kubernetes.GroupNamespaceName(workspace.GroupId)
	name := kubernetes.WorkspaceObjectName(workspaceId)
	usage, err := kubernetes.WorkspaceUsage(ctx, namespace, name)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "reading metrics of %s", workspaceId)
	}
	return usage, nil
}

func (self *LifecycleController) GetLogs(ctx context.Context, workspaceId string, lineCount int64) (string, error) {
	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		return "", err
	}

	namespace := kubernetes.GroupNamespaceName(workspace.GroupId)
	name := kubernetes.WorkspaceObjectName(workspaceId)
	logs, err := kubernetes.TailWorkspaceLogs(ctx, namespace, name, lineCount)
	if err != nil {
		return "", errdefs.Infrastructure(err, "reading logs of %s", workspaceId)
	}
	return logs, nil
}

// GetComponentHealth answers what the cluster currently holds for a
// workspace next to the persisted record. Individual checks degrade to
// their zero value on error; the report is a diagnostic aid, not a
// consistency guarantee.
func (self *LifecycleController) GetComponentHealth(ctx context.Context, workspaceId string) (*dtos.HealthReport, error) {
	workspace, err := self.getRecord(workspaceId)
	if err != nil {
		return nil, err
	}

	namespace := kubernetes.GroupNamespaceName(workspace.GroupId)
	name := kubernetes.WorkspaceObjectName(workspaceId)
	report := &dtos.HealthReport{
		WorkspaceId:     workspaceId,
		PersistedStatus: workspace.Status,
	}

	deploymentStatus, err := kubernetes.GetDeploymentStatus(ctx, namespace, name)
	if err != nil {
		self.logger.Warn("Health check could not read workload", "workspaceId", workspaceId, "error", err)
	} else {
		report.DeploymentFound = deploymentStatus.Found
		report.DesiredReplicas = deploymentStatus.DesiredReplicas
		report.ReadyReplicas = deploymentStatus.ReadyReplicas
		report.LiveStatus = kubernetes.DeriveWorkspaceStatus(deploymentStatus)
	}

	serviceFound, err := kubernetes.ServiceExists(ctx, namespace, name)
	if err != nil {
		self.logger.Warn("Health check could not read service", "workspaceId", workspaceId, "error", err)
	} else {
		report.ServiceFound = serviceFound
	}

	secretFound, err := kubernetes.SecretExists(ctx, namespace, name)
	if err != nil {
		self.logger.Warn("Health check could not read secret", "workspaceId", workspaceId, "error", err)
	} else {
		report.SecretFound = secretFound
	}

	registered, err := self.proxy.IsRegistered(ctx, namespace, name)
	if err != nil {
		self.logger.Warn("Health check could not read route membership", "workspaceId", workspaceId, "error", err)
	} else {
		report.RouteRegistered = registered
	}

	return report, nil
}

func (self *LifecycleController) getRecord(workspaceId string) (*dtos.WorkspaceDto, error) {
	workspace, err := store.Get[dtos.WorkspaceDto](self.recordStore, keyWorkspace, workspaceId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errdefs.NotFound("workspace not found: %s", workspaceId)
		}
		return nil, errdefs.Infrastructure(err, "reading workspace %s", workspaceId)
	}
	return workspace, nil
}
