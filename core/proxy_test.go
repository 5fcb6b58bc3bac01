package core

import (
	"context"
	"testing"

	"devspace-operator/kubernetes"

	"github.com/stretchr/testify/require"
)

func routePaths(t *testing.T, env *testEnv, namespace string) []string {
	t.Helper()
	ingress, err := kubernetes.GetRouteIngress(context.Background(), namespace)
	require.NoError(t, err)
	if ingress == nil {
		return nil
	}
	paths := []string{}
	for _, rule := range ingress.Spec.Rules {
		for _, path := range rule.HTTP.Paths {
			paths = append(paths, path.Path)
		}
	}
	return paths
}

func proxyConfig(t *testing.T, env *testEnv, namespace string) string {
	t.Helper()
	data, err := kubernetes.GetConfigMapData(context.Background(), namespace, kubernetes.ProxyConfigName)
	require.NoError(t, err)
	return data[proxyConfigFile]
}

func TestRebuildIsAPureFunctionOfTheMembershipSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, kubernetes.EnsureNamespace(ctx, "group-g1"))
	require.NoError(t, kubernetes.EnsureNamespace(ctx, "group-g2"))

	// two different call histories ending in the same membership set
	require.NoError(t, env.proxy.Register(ctx, "group-g1", "workspace-aaa"))
	require.NoError(t, env.proxy.Register(ctx, "group-g1", "workspace-bbb"))
	require.NoError(t, env.proxy.Register(ctx, "group-g1", "workspace-ccc"))
	require.NoError(t, env.proxy.Deregister(ctx, "group-g1", "workspace-aaa"))

	require.NoError(t, env.proxy.Register(ctx, "group-g2", "workspace-ccc"))
	require.NoError(t, env.proxy.Register(ctx, "group-g2", "workspace-bbb"))

	require.Equal(t, proxyConfig(t, env, "group-g1"), proxyConfig(t, env, "group-g2"))
	require.Equal(t, routePaths(t, env, "group-g1"), routePaths(t, env, "group-g2"))
	require.Equal(t,
		RenderProxyConfig([]string{"workspace-bbb", "workspace-ccc"}),
		proxyConfig(t, env, "group-g1"))
}

func TestRegisterIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, kubernetes.EnsureNamespace(ctx, "group-g1"))

	require.NoError(t, env.proxy.Register(ctx, "group-g1", "workspace-aaa"))
	require.NoError(t, env.proxy.Register(ctx, "group-g1", "workspace-aaa"))

	require.Equal(t, []string{kubernetes.RoutePathPrefix("workspace-aaa")}, routePaths(t, env, "group-g1"))
}

func TestDeregisterLastMemberLeavesEmptyRouteSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, kubernetes.EnsureNamespace(ctx, "group-g1"))

	require.NoError(t, env.proxy.Register(ctx, "group-g1", "workspace-aaa"))
	require.NoError(t, env.proxy.Deregister(ctx, "group-g1", "workspace-aaa"))

	require.Empty(t, routePaths(t, env, "group-g1"))
	require.Equal(t, RenderProxyConfig(nil), proxyConfig(t, env, "group-g1"))

	registered, err := env.proxy.IsRegistered(ctx, "group-g1", "workspace-aaa")
	require.NoError(t, err)
	require.False(t, registered)
}

func TestRenderProxyConfigIsOrderIndependent(t *testing.T) {
	t.Parallel()

	forward := RenderProxyConfig([]string{"workspace-aaa", "workspace-bbb"})
	backward := RenderProxyConfig([]string{"workspace-bbb", "workspace-aaa"})
	require.Equal(t, forward, backward)
	require.Contains(t, forward, "location /workspaces/workspace-aaa/ {")
	require.Contains(t, forward, "proxy_pass http://workspace-bbb:8080/;")
}

func TestTwoWorkspacesShareOneRouteObject(t *testing.T) {
	env := newTestEnv(t)
	group, user := env.seedTenant(t)
	ctx := context.Background()

	first := env.createWorkspace(t, user.Id, group.Id)
	second := env.createWorkspace(t, user.Id, group.Id)

	paths := routePaths(t, env, group.Namespace)
	require.Len(t, paths, 2)
	require.Contains(t, paths, kubernetes.RoutePathPrefix(kubernetes.WorkspaceObjectName(first.Id)))
	require.Contains(t, paths, kubernetes.RoutePathPrefix(kubernetes.WorkspaceObjectName(second.Id)))

	require.NoError(t, env.lifecycle.DeleteWorkspace(ctx, user.Id, first.Id))

	paths = routePaths(t, env, group.Namespace)
	require.Equal(t, []string{kubernetes.RoutePathPrefix(kubernetes.WorkspaceObjectName(second.Id))}, paths)
}
