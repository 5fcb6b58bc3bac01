package kubernetes

import (
	"context"
	"log/slog"
	"testing"

	configpkg "devspace-operator/config"
	"devspace-operator/dtos"
	"devspace-operator/interfaces"
	"devspace-operator/logging"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	"k8s.io/utils/ptr"

	k8s "k8s.io/client-go/kubernetes"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"

	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

type fakeClientProvider struct {
	clientSet        k8s.Interface
	metricsClientSet metricsv.Interface
}

func (self *fakeClientProvider) K8sClientSet() k8s.Interface          { return self.clientSet }
func (self *fakeClientProvider) MetricsClientSet() metricsv.Interface { return self.metricsClientSet }
func (self *fakeClientProvider) RunsInCluster() bool                  { return false }
func (self *fakeClientProvider) ClientConfig() *rest.Config           { return &rest.Config{} }

func setupTest(t *testing.T) *fake.Clientset {
	t.Helper()

	clientSet := fake.NewClientset()
	cfg := configpkg.NewConfig()
	cfg.Declare(interfaces.ConfigDeclaration{Key: "DSO_PROXY_IMAGE", DefaultValue: ptr.To("nginx:1.27-alpine")})

	Setup(
		logging.NewSlogManager(t.TempDir(), slog.LevelError+4),
		&fakeClientProvider{clientSet: clientSet, metricsClientSet: metricsfake.NewSimpleClientset()},
		cfg,
	)
	return clientSet
}

func TestEnsureNamespaceIsIdempotent(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	require.NoError(t, EnsureNamespace(ctx, "group-a1b2c3d4ef"))
	require.NoError(t, EnsureNamespace(ctx, "group-a1b2c3d4ef"))

	exists, err := NamespaceExists(ctx, "group-a1b2c3d4ef")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestEnsureResourceQuotaCreatesAndUpdates(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	quota := dtos.ResourceQuota{Cpu: "2", Memory: "4Gi", Storage: "20Gi", MaxPods: 10}
	require.NoError(t, EnsureNamespace(ctx, "group-g1"))
	require.NoError(t, EnsureResourceQuota(ctx, "group-g1", quota))

	applied, err := GetResourceQuota(ctx, "group-g1")
	require.NoError(t, err)
	cpu := applied.Spec.Hard[corev1.ResourceRequestsCPU]
	memory := applied.Spec.Hard[corev1.ResourceRequestsMemory]
	require.Equal(t, "2", cpu.String())
	require.Equal(t, "4Gi", memory.String())

	// raising the quota must update, not error
	quota.MaxPods = 20
	require.NoError(t, EnsureResourceQuota(ctx, "group-g1", quota))
	applied, err = GetResourceQuota(ctx, "group-g1")
	require.NoError(t, err)
	pods := applied.Spec.Hard[corev1.ResourcePods]
	require.Equal(t, int64(20), pods.Value())
}

func TestEnsureResourceQuotaRejectsMalformedQuantities(t *testing.T) {
	setupTest(t)
	ctx := context.Background()

	err := EnsureResourceQuota(ctx, "group-g1", dtos.ResourceQuota{Cpu: "two", Memory: "4Gi", Storage: "20Gi", MaxPods: 10})
	require.Error(t, err)
}

func TestEnsureProxyStackIsIdempotent(t *testing.T) {
	clientSet := setupTest(t)
	ctx := context.Background()

	require.NoError(t, EnsureProxyStack(ctx, "group-g1"))
	require.NoError(t, EnsureProxyStack(ctx, "group-g1"))

	deployments, err := clientSet.AppsV1().Deployments("group-g1").List(ctx, metav1.ListOptions{})
	require.NoError(t, err)
	require.Len(t, deployments.Items, 1)
}

func TestDeriveWorkspaceStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status DeploymentStatus
		want   dtos.WorkspaceStatus
	}{
		{"missing deployment", DeploymentStatus{Found: false}, dtos.WorkspaceStatusError},
		{"scaled to zero", DeploymentStatus{Found: true, DesiredReplicas: 0, ReadyReplicas: 0}, dtos.WorkspaceStatusStopped},
		{"draining", DeploymentStatus{Found: true, DesiredReplicas: 0, ReadyReplicas: 1}, dtos.WorkspaceStatusStopping},
		{"starting", DeploymentStatus{Found: true, DesiredReplicas: 1, ReadyReplicas: 0}, dtos.WorkspaceStatusStarting},
		{"running", DeploymentStatus{Found: true, DesiredReplicas: 1, ReadyReplicas: 1}, dtos.WorkspaceStatusRunning},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveWorkspaceStatus(tc.status))
		})
	}
}

func TestScaleDeploymentSetsReplicas(t *testing.T) {
	clientSet := setupTest(t)
	ctx := context.Background()

	spec := WorkspaceDeploymentSpec{
		WorkspaceId: "ws-x7f3k2m9qa",
		GroupId:     "grp-a1b2c3d4ef",
		Name:        WorkspaceObjectName("ws-x7f3k2m9qa"),
		Image:       "codercom/code-server:latest",
		Resources:   dtos.ResourceSizing{Cpu: "500m", Memory: "1Gi", Storage: "5Gi"},
		Replicas:    0,
		SecretName:  WorkspaceObjectName("ws-x7f3k2m9qa"),
	}
	require.NoError(t, CreateWorkspaceDeployment(ctx, "group-g1", spec))

	require.NoError(t, ScaleDeployment(ctx, "group-g1", spec.Name, 1))

	deployment, err := clientSet.AppsV1().Deployments("group-g1").Get(ctx, spec.Name, metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(1), *deployment.Spec.Replicas)
}
