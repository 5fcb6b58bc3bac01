package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"devspace-operator/assert"
	"devspace-operator/errdefs"
	"devspace-operator/interfaces"
	"devspace-operator/kubernetes"

	"sigs.k8s.io/yaml"
)

const (
	proxyMembersFile = "members.yaml"
	proxyConfigFile  = "default.conf"
)

// ProxySynthesizer owns the shared routing state of every namespace:
// the membership object listing the registered workspaces, the rendered
// reverse proxy config and the aggregate route object. All three are
// rebuilt in full from the membership set on every change, never
// patched, so a rebuild self-heals from any prior partial write.
//
// All writes for one namespace are serialized through a per-namespace
// mutex. Two concurrent registrations in the same namespace would
// otherwise read-modify-write the same membership object and silently
// drop one of the entries.
type ProxySynthesizer struct {
	logger *slog.Logger
	locks  *keyedMutex
}

func NewProxySynthesizer(logManager interfaces.LogManager) *ProxySynthesizer {
	assert.Assert(logManager != nil, "logManager must not be nil")

	return &ProxySynthesizer{
		logger: logManager.CreateLogger("proxy"),
		locks:  newKeyedMutex(),
	}
}

// Register adds a workspace to the namespace membership set and
// rebuilds the routing state. Registering an already registered
// workspace is a no-op rebuild.
func (self *ProxySynthesizer) Register(ctx context.Context, namespace string, workspaceName string) error {
	self.locks.Lock(namespace)
	defer self.locks.Unlock(namespace)

	members, err := self.readMembers(ctx, namespace)
	if err != nil {
		return err
	}
	if !slices.Contains(members, workspaceName) {
		members = append(members, workspaceName)
	}
	return self.rebuild(ctx, namespace, members)
}

// Deregister removes a workspace from the namespace membership set and
// rebuilds the routing state.
func (self *ProxySynthesizer) Deregister(ctx context.Context, namespace string, workspaceName string) error {
	self.locks.Lock(namespace)
	defer self.locks.Unlock(namespace)

	members, err := self.readMembers(ctx, namespace)
	if err != nil {
		return err
	}
	members = slices.DeleteFunc(members, func(member string) bool { return member == workspaceName })
	return self.rebuild(ctx, namespace, members)
}

// Rebuild re-renders the routing state from the current membership set
// without changing it.
func (self *ProxySynthesizer) Rebuild(ctx context.Context, namespace string) error {
	self.locks.Lock(namespace)
	defer self.locks.Unlock(namespace)

	members, err := self.readMembers(ctx, namespace)
	if err != nil {
		return err
	}
	return self.rebuild(ctx, namespace, members)
}

// IsRegistered reports whether a workspace currently has a route entry.
func (self *ProxySynthesizer) IsRegistered(ctx context.Context, namespace string, workspaceName string) (bool, error) {
	members, err := self.readMembers(ctx, namespace)
	if err != nil {
		return false, err
	}
	return slices.Contains(members, workspaceName), nil
}

func (self *ProxySynthesizer) readMembers(ctx context.Context, namespace string) ([]string, error) {
	data, err := kubernetes.GetConfigMapData(ctx, namespace, kubernetes.ProxyMembersName)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "reading route membership of namespace %s", namespace)
	}
	if data == nil {
		return []string{}, nil
	}

	members := []string{}
	err = yaml.Unmarshal([]byte(data[proxyMembersFile]), &members)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "route membership of namespace %s is malformed", namespace)
	}
	return members, nil
}

func (self *ProxySynthesizer) rebuild(ctx context.Context, namespace string, members []string) error {
	slices.Sort(members)

	membersYaml, err := yaml.Marshal(members)
	if err != nil {
		return errdefs.Infrastructure(err, "rendering route membership of namespace %s", namespace)
	}
	err = kubernetes.ApplyConfigMap(ctx, namespace, kubernetes.ProxyMembersName, map[string]string{
		proxyMembersFile: string(membersYaml),
	})
	if err != nil {
		return errdefs.Infrastructure(err, "writing route membership of namespace %s", namespace)
	}

	err = kubernetes.ApplyConfigMap(ctx, namespace, kubernetes.ProxyConfigName, map[string]string{
		proxyConfigFile: RenderProxyConfig(members),
	})
	if err != nil {
		return errdefs.Infrastructure(err, "writing proxy config of namespace %s", namespace)
	}

	pathPrefixes := make([]string, 0, len(members))
	for _, member := range members {
		pathPrefixes = append(pathPrefixes, kubernetes.RoutePathPrefix(member))
	}
	err = kubernetes.ApplyRouteIngress(ctx, namespace, pathPrefixes)
	if err != nil {
		return errdefs.Infrastructure(err, "writing route object of namespace %s", namespace)
	}

	self.logger.Debug("Rebuilt namespace routing", "namespace", namespace, "members", len(members))
	return nil
}

// RenderProxyConfig renders the full reverse proxy server config for a
// membership set. Pure function of its input; members are rendered in
// sorted order so equal sets produce byte-identical configs.
func RenderProxyConfig(members []string) string {
	sorted := slices.Clone(members)
	slices.Sort(sorted)

	var b strings.Builder
	b.WriteString("server {\n")
	fmt.Fprintf(&b, "    listen %d;\n", kubernetes.ProxyPort)

	for _, member := range sorted {
		b.WriteString("\n")
		fmt.Fprintf(&b, "    location %s/ {\n", kubernetes.RoutePathPrefix(member))
		fmt.Fprintf(&b, "        proxy_pass http://%s:%d/;\n", member, kubernetes.WorkspacePort)
		b.WriteString("        proxy_http_version 1.1;\n")
		b.WriteString("        proxy_set_header Upgrade $http_upgrade;\n")
		b.WriteString("        proxy_set_header Connection \"upgrade\";\n")
		b.WriteString("        proxy_set_header Host $host;\n")
		b.WriteString("    }\n")
	}

	b.WriteString("}\n")
	return b.String()
}
