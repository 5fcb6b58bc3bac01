package kubernetes

import "strings"

const (
	workspaceIdPrefix = "ws-"
	groupIdPrefix     = "grp-"

	workspaceNamePrefix = "workspace-"
	namespaceNamePrefix = "group-"

	ProxyName        = "workspace-proxy"
	ProxyMembersName = "workspace-proxy-members"
	ProxyConfigName  = "workspace-proxy-config"
	RouteIngressName = "workspace-routes"

	WorkspacePort = 8080
	ProxyPort     = 80
)

// WorkspaceObjectName derives the cluster object name backing a
// workspace. The transform is pure: strip the id's type prefix, lower
// case the rest, prepend a fixed letter prefix. Names stay DNS-label
// safe and collide only if ids collide.
func WorkspaceObjectName(workspaceId string) string {
	return workspaceNamePrefix + strings.ToLower(strings.TrimPrefix(workspaceId, workspaceIdPrefix))
}

// GroupNamespaceName derives the namespace name of a group id with the
// same transform as WorkspaceObjectName.
func GroupNamespaceName(groupId string) string {
	return namespaceNamePrefix + strings.ToLower(strings.TrimPrefix(groupId, groupIdPrefix))
}

// RoutePathPrefix is the external path prefix of one workspace behind
// the shared namespace proxy.
func RoutePathPrefix(workspaceObjectName string) string {
	return "/workspaces/" + workspaceObjectName
}
