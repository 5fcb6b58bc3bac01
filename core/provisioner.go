package core

import (
	"context"
	"log/slog"

	"devspace-operator/assert"
	"devspace-operator/dtos"
	"devspace-operator/interfaces"
	"devspace-operator/kubernetes"
)

// WorkspaceProvisionSpec is everything the provisioner needs to stand
// up the cluster objects backing one workspace.
type WorkspaceProvisionSpec struct {
	WorkspaceId string
	GroupId     string
	Namespace   string
	Name        string
	Image       string
	AccessToken string
	Resources   dtos.ResourceSizing
	Quota       dtos.ResourceQuota
	Replicas    int32
}

// provisionStep is one create step of the provisioning sequence paired
// with its compensating delete. compensate may be nil for shared steps
// that must never be undone on behalf of a single workspace.
type provisionStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// Provisioner creates and tears down the cluster objects of one
// workspace. Provisioning is not a transaction: it is an ordered step
// list with best-effort compensation. On failure every compensation of
// the completed steps (and the failed one, which may have created
// objects before erroring) runs exactly once, each outcome is logged,
// and the original error is re-raised.
type Provisioner struct {
	logger *slog.Logger
	proxy  *ProxySynthesizer
}

func NewProvisioner(logManager interfaces.LogManager, proxy *ProxySynthesizer) *Provisioner {
	assert.Assert(logManager != nil, "logManager must not be nil")
	assert.Assert(proxy != nil, "proxy must not be nil")

	return &Provisioner{
		logger: logManager.CreateLogger("provisioner"),
		proxy:  proxy,
	}
}

// Create stands up namespace, quota, credential secret, workload,
// service, the shared proxy stack and the workspace route. The shared
// proxy stack is only torn down in this create failure path, never by
// a regular workspace delete.
func (self *Provisioner) Create(ctx context.Context, spec WorkspaceProvisionSpec) error {
	steps := []provisionStep{
		{
			name: "namespace",
			run: func(ctx context.Context) error {
				err := kubernetes.EnsureNamespace(ctx, spec.Namespace)
				if err != nil {
					return err
				}
				return kubernetes.EnsureResourceQuota(ctx, spec.Namespace, spec.Quota)
			},
			// the namespace is shared tenant state, never compensated
			compensate: nil,
		},
		{
			name: "secret",
			run: func(ctx context.Context) error {
				return kubernetes.CreateWorkspaceSecret(ctx, spec.Namespace, spec.WorkspaceId, spec.GroupId, spec.Name, spec.AccessToken)
			},
			compensate: func(ctx context.Context) error {
				return kubernetes.DeleteSecret(ctx, spec.Namespace, spec.Name)
			},
		},
		{
			name: "deployment",
			run: func(ctx context.Context) error {
				return kubernetes.CreateWorkspaceDeployment(ctx, spec.Namespace, kubernetes.WorkspaceDeploymentSpec{
					WorkspaceId: spec.WorkspaceId,
					GroupId:     spec.GroupId,
					Name:        spec.Name,
					Image:       spec.Image,
					Resources:   spec.Resources,
					Replicas:    spec.Replicas,
					SecretName:  spec.Name,
				})
			},
			compensate: func(ctx context.Context) error {
				return kubernetes.DeleteDeployment(ctx, spec.Namespace, spec.Name)
			},
		},
		{
			name: "service",
			run: func(ctx context.Context) error {
				return kubernetes.CreateWorkspaceService(ctx, spec.Namespace, spec.WorkspaceId, spec.GroupId, spec.Name)
			},
			compensate: func(ctx context.Context) error {
				return kubernetes.DeleteService(ctx, spec.Namespace, spec.Name)
			},
		},
		{
			name: "proxy stack",
			run: func(ctx context.Context) error {
				return kubernetes.EnsureProxyStack(ctx, spec.Namespace)
			},
			compensate: func(ctx context.Context) error {
				return kubernetes.DeleteProxyStack(ctx, spec.Namespace)
			},
		},
		{
			name: "route",
			run: func(ctx context.Context) error {
				return self.proxy.Register(ctx, spec.Namespace, spec.Name)
			},
			compensate: func(ctx context.Context) error {
				return self.proxy.Deregister(ctx, spec.Namespace, spec.Name)
			},
		},
	}

	for i, step := range steps {
		err := step.run(ctx)
		if err != nil {
			self.logger.Error("Provisioning step failed, rolling back", "workspaceId", spec.WorkspaceId, "step", step.name, "error", err)
			self.rollback(ctx, spec.WorkspaceId, steps[:i+1])
			return err
		}
	}
	return nil
}

// rollback runs the compensations of the given steps in reverse order.
// Each compensation is attempted once; failures are logged and do not
// stop the remaining compensations.
func (self *Provisioner) rollback(ctx context.Context, workspaceId string, steps []provisionStep) {
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if step.compensate == nil {
			continue
		}
		err := step.compensate(ctx)
		if err != nil {
			self.logger.Error("Compensation failed", "workspaceId", workspaceId, "step", step.name, "error", err)
			continue
		}
		self.logger.Info("Compensated provisioning step", "workspaceId", workspaceId, "step", step.name)
	}
}

// Delete tears down the cluster objects of one workspace. Every
// sub-step failure is logged and swallowed; deletion makes forward
// progress even under partial cluster failures, and the caller removes
// the persisted record regardless.
func (self *Provisioner) Delete(ctx context.Context, namespace string, workspaceId string, name string) {
	if err := kubernetes.DeleteDeployment(ctx, namespace, name); err != nil {
		self.logger.Error("Deleting workload failed", "workspaceId", workspaceId, "error", err)
	}
	if err := kubernetes.DeleteService(ctx, namespace, name); err != nil {
		self.logger.Error("Deleting service failed", "workspaceId", workspaceId, "error", err)
	}
	if err := kubernetes.DeleteSecret(ctx, namespace, name); err != nil {
		self.logger.Error("Deleting secret failed", "workspaceId", workspaceId, "error", err)
	}
	if err := self.proxy.Deregister(ctx, namespace, name); err != nil {
		self.logger.Error("Deregistering route failed", "workspaceId", workspaceId, "error", err)
	}
}

// Scale sets the desired replica count and returns without waiting for
// convergence.
func (self *Provisioner) Scale(ctx context.Context, namespace string, name string, replicas int32) error {
	return kubernetes.ScaleDeployment(ctx, namespace, name, replicas)
}
