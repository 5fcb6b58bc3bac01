package core

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"devspace-operator/config"
	"devspace-operator/dtos"
	"devspace-operator/interfaces"
	"devspace-operator/kubernetes"
	"devspace-operator/logging"
	"devspace-operator/store"

	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	"k8s.io/utils/ptr"

	k8s "k8s.io/client-go/kubernetes"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"
)

type fakeClientProvider struct {
	clientSet        k8s.Interface
	metricsClientSet metricsv.Interface
}

func (self *fakeClientProvider) K8sClientSet() k8s.Interface          { return self.clientSet }
func (self *fakeClientProvider) MetricsClientSet() metricsv.Interface { return self.metricsClientSet }
func (self *fakeClientProvider) RunsInCluster() bool                  { return false }
func (self *fakeClientProvider) ClientConfig() *rest.Config           { return &rest.Config{} }

type testEnv struct {
	clientSet   *fake.Clientset
	recordStore *store.Store
	tenants     *TenantManager
	proxy       *ProxySynthesizer
	provisioner *Provisioner
	reconciler  *Reconciler
	lifecycle   *LifecycleController
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clientSet := fake.NewClientset()
	cfg := config.NewConfig()
	declare := func(key string, value string) {
		cfg.Declare(interfaces.ConfigDeclaration{Key: key, DefaultValue: ptr.To(value)})
	}
	declare("DSO_PROXY_IMAGE", "nginx:1.27-alpine")
	declare("DSO_DEFAULT_WORKSPACE_IMAGE", "codercom/code-server:latest")
	declare("DSO_DEFAULT_TIER", "small")
	declare("DSO_PROBE_DELAY_SECONDS", "0")

	logManager := logging.NewSlogManager(t.TempDir(), slog.LevelError+4)
	kubernetes.Setup(logManager, &fakeClientProvider{
		clientSet:        clientSet,
		metricsClientSet: metricsfake.NewSimpleClientset(),
	}, cfg)
	store.Setup(logManager)

	recordStore, err := store.NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = recordStore.Close() })

	tenants := NewTenantManager(logManager, recordStore)
	proxy := NewProxySynthesizer(logManager)
	provisioner := NewProvisioner(logManager, proxy)
	reconciler := NewReconciler(logManager, recordStore, nil)
	lifecycle := NewLifecycleController(logManager, cfg, recordStore, tenants, provisioner, proxy, reconciler)

	return &testEnv{
		clientSet:   clientSet,
		recordStore: recordStore,
		tenants:     tenants,
		proxy:       proxy,
		provisioner: provisioner,
		reconciler:  reconciler,
		lifecycle:   lifecycle,
	}
}

// seedTenant creates a group, a member user and their membership.
func (self *testEnv) seedTenant(t *testing.T) (*dtos.GroupDto, *dtos.UserDto) {
	t.Helper()
	ctx := context.Background()

	group, err := self.tenants.CreateGroup(ctx, dtos.GroupCreateRequest{
		DisplayName: "platform-team",
		Quota:       dtos.ResourceQuota{Cpu: "2", Memory: "4Gi", Storage: "20Gi", MaxPods: 10},
	})
	require.NoError(t, err)

	user, err := self.tenants.CreateUser(ctx, fmt.Sprintf("%s@example.com", group.Id), "Dev Example", false)
	require.NoError(t, err)

	_, err = self.tenants.AddMember(ctx, group.Id, dtos.MembershipRequest{UserId: user.Id, Role: dtos.GroupRoleMember})
	require.NoError(t, err)

	return group, user
}

func (self *testEnv) createWorkspace(t *testing.T, userId string, groupId string) *dtos.WorkspaceDto {
	t.Helper()
	workspace, err := self.lifecycle.CreateWorkspace(context.Background(), userId, dtos.WorkspaceCreateRequest{
		GroupId:     groupId,
		DisplayName: "my-workspace",
	})
	require.NoError(t, err)
	return workspace
}
