package core

import (
	"context"
	"errors"
	"testing"

	"devspace-operator/dtos"
	"devspace-operator/kubernetes"
	"devspace-operator/store"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	k8stesting "k8s.io/client-go/testing"
	"k8s.io/utils/ptr"
)

func TestRefreshPersistsLiveStatusChange(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)
	name := kubernetes.WorkspaceObjectName(workspace.Id)

	// the workload was scaled up behind the record's back
	require.NoError(t, kubernetes.ScaleDeployment(ctx, group.Namespace, name, 1))

	env.reconciler.Refresh(ctx, workspace)
	require.Equal(t, dtos.WorkspaceStatusStarting, workspace.Status)

	record, err := store.Get[dtos.WorkspaceDto](env.recordStore, keyWorkspace, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, dtos.WorkspaceStatusStarting, record.Status)
}

func TestRefreshOfStaleCopyKeepsConcurrentActionWrites(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)

	// a reader loaded its copy before the action ran
	stale, err := store.Get[dtos.WorkspaceDto](env.recordStore, keyWorkspace, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, int32(0), stale.Replicas)

	_, err = env.lifecycle.PerformAction(ctx, workspace.Id, dtos.WorkspaceActionStart)
	require.NoError(t, err)
	env.lifecycle.probes.wait()

	env.reconciler.Refresh(ctx, stale)

	record, err := store.Get[dtos.WorkspaceDto](env.recordStore, keyWorkspace, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, int32(1), record.Replicas)
	require.Equal(t, dtos.WorkspaceStatusStarting, record.Status)
	// the caller's copy is brought forward, not the record backward
	require.Equal(t, int32(1), stale.Replicas)
}

func TestRefreshReportsErrorWhenWorkloadIsGone(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)
	name := kubernetes.WorkspaceObjectName(workspace.Id)
	require.NoError(t, env.clientSet.AppsV1().Deployments(group.Namespace).Delete(ctx, name, metav1.DeleteOptions{}))

	env.reconciler.Refresh(ctx, workspace)
	require.Equal(t, dtos.WorkspaceStatusError, workspace.Status)
}

func TestRefreshNeverFailsTheRead(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)

	env.clientSet.PrependReactor("get", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("injected cluster failure")
	})

	// the last persisted state is served unchanged
	env.reconciler.Refresh(ctx, workspace)
	require.Equal(t, dtos.WorkspaceStatusStopped, workspace.Status)

	record, err := store.Get[dtos.WorkspaceDto](env.recordStore, keyWorkspace, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, dtos.WorkspaceStatusStopped, record.Status)
}

func TestSyncToleratesMetricsFailure(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)
	name := kubernetes.WorkspaceObjectName(workspace.Id)

	deployment, err := env.clientSet.AppsV1().Deployments(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.NoError(t, err)
	deployment.Spec.Replicas = ptr.To[int32](1)
	deployment.Status.Replicas = 1
	deployment.Status.ReadyReplicas = 1
	_, err = env.clientSet.AppsV1().Deployments(group.Namespace).Update(ctx, deployment, metav1.UpdateOptions{})
	require.NoError(t, err)

	synced, err := env.lifecycle.SyncWorkspace(ctx, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, dtos.WorkspaceStatusRunning, synced.Status)
	require.Equal(t, int32(1), synced.Replicas)
}
