package core

import (
	"context"
	"testing"

	"devspace-operator/assert"
	"devspace-operator/dtos"
	"devspace-operator/errdefs"
	"devspace-operator/kubernetes"
	"devspace-operator/store"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestCreateWorkspaceStartsStopped(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)

	require.Equal(t, dtos.WorkspaceStatusStopped, workspace.Status)
	require.Equal(t, int32(0), workspace.Replicas)
	require.Equal(t, "codercom/code-server:latest", workspace.Image)
	require.Equal(t, dtos.BuiltinTiers["small"].Resources, workspace.Resources)
	require.NotEmpty(t, workspace.AccessToken)

	name := kubernetes.WorkspaceObjectName(workspace.Id)
	deployment, err := env.clientSet.AppsV1().Deployments(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(0), *deployment.Spec.Replicas)

	_, err = env.clientSet.CoreV1().Services(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.NoError(t, err)
	_, err = env.clientSet.CoreV1().Secrets(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.NoError(t, err)

	registered, err := env.proxy.IsRegistered(ctx, group.Namespace, name)
	require.NoError(t, err)
	assert.AssertT(t, registered, "created workspace must have a route entry")
}

func TestCreateWorkspaceRejectsNonMembers(t *testing.T) {
	env := newTestEnv(t)
	group, _ := env.seedTenant(t)
	ctx := context.Background()

	outsider, err := env.tenants.CreateUser(ctx, "outsider@example.com", "Outsider", false)
	require.NoError(t, err)

	_, err = env.lifecycle.CreateWorkspace(ctx, outsider.Id, dtos.WorkspaceCreateRequest{
		GroupId:     group.Id,
		DisplayName: "sneaky",
	})
	require.True(t, errdefs.IsAuthorization(err))
}

func TestCreateWorkspaceRejectsUnknownTier(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)

	_, err := env.lifecycle.CreateWorkspace(context.Background(), user.Id, dtos.WorkspaceCreateRequest{
		GroupId:     group.Id,
		DisplayName: "my-workspace",
		Tier:        "galactic",
	})
	require.True(t, errdefs.IsValidation(err))
}

func TestStartTransitionsToStartingAndScalesUp(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)

	updated, err := env.lifecycle.PerformAction(ctx, workspace.Id, dtos.WorkspaceActionStart)
	require.NoError(t, err)
	require.Equal(t, dtos.WorkspaceStatusStarting, updated.Status)
	require.Equal(t, int32(1), updated.Replicas)

	name := kubernetes.WorkspaceObjectName(workspace.Id)
	deployment, err := env.clientSet.AppsV1().Deployments(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(1), *deployment.Spec.Replicas)
}

func TestProbePersistsRunningOnceWorkloadIsReady(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)
	name := kubernetes.WorkspaceObjectName(workspace.Id)

	// mark the workload ready before the action so the zero-delay
	// probe observes a converged state
	deployment, err := env.clientSet.AppsV1().Deployments(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.NoError(t, err)
	deployment.Status.Replicas = 1
	deployment.Status.ReadyReplicas = 1
	_, err = env.clientSet.AppsV1().Deployments(group.Namespace).UpdateStatus(ctx, deployment, metav1.UpdateOptions{})
	require.NoError(t, err)

	_, err = env.lifecycle.PerformAction(ctx, workspace.Id, dtos.WorkspaceActionStart)
	require.NoError(t, err)
	env.lifecycle.probes.wait()

	record, err := store.Get[dtos.WorkspaceDto](env.recordStore, keyWorkspace, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, dtos.WorkspaceStatusRunning, record.Status)
}

func TestStartOnRunningWorkspaceIsConflict(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)
	workspace.Status = dtos.WorkspaceStatusRunning
	workspace.Replicas = 1
	require.NoError(t, env.recordStore.Set(workspace, keyWorkspace, workspace.Id))

	_, err := env.lifecycle.PerformAction(ctx, workspace.Id, dtos.WorkspaceActionStart)
	require.True(t, errdefs.IsConflict(err))

	record, err := store.Get[dtos.WorkspaceDto](env.recordStore, keyWorkspace, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, dtos.WorkspaceStatusRunning, record.Status)
	require.Equal(t, int32(1), record.Replicas)
}

func TestStopOnStoppedWorkspaceIsConflict(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)

	_, err := env.lifecycle.PerformAction(ctx, workspace.Id, dtos.WorkspaceActionStop)
	require.True(t, errdefs.IsConflict(err))

	record, err := store.Get[dtos.WorkspaceDto](env.recordStore, keyWorkspace, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, dtos.WorkspaceStatusStopped, record.Status)
}

func TestRestartIsAllowedFromAnyStatus(t *testing.T) {
	for _, status := range []dtos.WorkspaceStatus{
		dtos.WorkspaceStatusStopped,
		dtos.WorkspaceStatusStarting,
		dtos.WorkspaceStatusRunning,
		dtos.WorkspaceStatusStopping,
		dtos.WorkspaceStatusError,
	} {
		next, err := nextStatus(dtos.WorkspaceActionRestart, status)
		require.NoError(t, err)
		require.Equal(t, dtos.WorkspaceStatusStarting, next)
	}
}

func TestDeleteWorkspaceRequiresStanding(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)

	member, err := env.tenants.CreateUser(ctx, "member@example.com", "Member", false)
	require.NoError(t, err)
	_, err = env.tenants.AddMember(ctx, group.Id, dtos.MembershipRequest{UserId: member.Id, Role: dtos.GroupRoleMember})
	require.NoError(t, err)

	err = env.lifecycle.DeleteWorkspace(ctx, member.Id, workspace.Id)
	require.True(t, errdefs.IsAuthorization(err))

	// promoting the member to group admin grants delete standing
	_, err = env.tenants.SetRole(ctx, group.Id, member.Id, dtos.GroupRoleAdmin)
	require.NoError(t, err)
	require.NoError(t, env.lifecycle.DeleteWorkspace(ctx, member.Id, workspace.Id))

	_, err = env.lifecycle.GetWorkspace(ctx, workspace.Id)
	require.True(t, errdefs.IsNotFound(err))
}

func TestDeleteWorkspaceRemovesClusterObjectsAndRoute(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)
	name := kubernetes.WorkspaceObjectName(workspace.Id)

	require.NoError(t, env.lifecycle.DeleteWorkspace(ctx, user.Id, workspace.Id))

	_, err := env.clientSet.AppsV1().Deployments(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.Error(t, err)
	registered, err := env.proxy.IsRegistered(ctx, group.Namespace, name)
	require.NoError(t, err)
	assert.AssertT(t, !registered, "deleted workspace must not keep a route entry")
}

func TestUpdateWorkspaceImageRequiresStopped(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)
	workspace.Status = dtos.WorkspaceStatusRunning
	require.NoError(t, env.recordStore.Set(workspace, keyWorkspace, workspace.Id))

	newImage := "ghcr.io/coder/envbox:latest"
	_, err := env.lifecycle.UpdateWorkspace(ctx, workspace.Id, dtos.WorkspaceUpdateRequest{Image: &newImage})
	require.True(t, errdefs.IsConflict(err))

	workspace.Status = dtos.WorkspaceStatusStopped
	require.NoError(t, env.recordStore.Set(workspace, keyWorkspace, workspace.Id))

	updated, err := env.lifecycle.UpdateWorkspace(ctx, workspace.Id, dtos.WorkspaceUpdateRequest{Image: &newImage})
	require.NoError(t, err)
	require.Equal(t, newImage, updated.Image)

	name := kubernetes.WorkspaceObjectName(workspace.Id)
	deployment, err := env.clientSet.AppsV1().Deployments(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, newImage, deployment.Spec.Template.Spec.Containers[0].Image)
	require.Equal(t, int32(0), *deployment.Spec.Replicas)
}

func TestListWorkspacesFilters(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	otherGroup, otherUser := env.seedTenant(t)
	ctx := context.Background()

	first := env.createWorkspace(t, user.Id, group.Id)
	env.createWorkspace(t, otherUser.Id, otherGroup.Id)

	byUser, err := env.lifecycle.ListWorkspaces(ctx, dtos.WorkspaceListFilter{UserId: user.Id})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	require.Equal(t, first.Id, byUser[0].Id)

	byGroup, err := env.lifecycle.ListWorkspaces(ctx, dtos.WorkspaceListFilter{GroupId: otherGroup.Id})
	require.NoError(t, err)
	require.Len(t, byGroup, 1)

	all, err := env.lifecycle.ListWorkspaces(ctx, dtos.WorkspaceListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestGetComponentHealthReportsAllParts(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)

	report, err := env.lifecycle.GetComponentHealth(ctx, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, workspace.Id, report.WorkspaceId)
	require.Equal(t, dtos.WorkspaceStatusStopped, report.PersistedStatus)
	require.Equal(t, dtos.WorkspaceStatusStopped, report.LiveStatus)
	require.True(t, report.DeploymentFound)
	require.True(t, report.ServiceFound)
	require.True(t, report.SecretFound)
	require.True(t, report.RouteRegistered)
}

func TestSyncOverwritesImageAndReplicasFromCluster(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	workspace := env.createWorkspace(t, user.Id, group.Id)
	name := kubernetes.WorkspaceObjectName(workspace.Id)

	// drift the cluster away from the record
	deployment, err := env.clientSet.AppsV1().Deployments(group.Namespace).Get(ctx, name, metav1.GetOptions{})
	require.NoError(t, err)
	deployment.Spec.Template.Spec.Containers[0].Image = "drifted:latest"
	_, err = env.clientSet.AppsV1().Deployments(group.Namespace).Update(ctx, deployment, metav1.UpdateOptions{})
	require.NoError(t, err)

	synced, err := env.lifecycle.SyncWorkspace(ctx, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, "drifted:latest", synced.Image)

	record, err := store.Get[dtos.WorkspaceDto](env.recordStore, keyWorkspace, workspace.Id)
	require.NoError(t, err)
	require.Equal(t, "drifted:latest", record.Image)
}
