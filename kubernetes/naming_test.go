package kubernetes

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var dnsLabel = regexp.MustCompile(`^[a-z]([-a-z0-9]*[a-z0-9])?$`)

func TestWorkspaceObjectNameIsDeterministic(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	ids := []string{"ws-x7f3k2m9qa", "ws-ABC123xyz9", "ws-0000000000"}
	for _, id := range ids {
		first := WorkspaceObjectName(id)
		second := WorkspaceObjectName(id)
		assert.Equal(first, second, "same id must always yield the same name")
		assert.Regexp(dnsLabel, first, "derived name must be a DNS label")
	}
}

func TestWorkspaceObjectNameStripsTypePrefix(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.Equal("workspace-x7f3k2m9qa", WorkspaceObjectName("ws-x7f3k2m9qa"))
	assert.Equal("workspace-abc123xyz9", WorkspaceObjectName("ws-ABC123xyz9"))
}

func TestWorkspaceObjectNameUniquePerUniqueId(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.NotEqual(WorkspaceObjectName("ws-aaaa111122"), WorkspaceObjectName("ws-bbbb111122"))
}

func TestGroupNamespaceName(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.Equal("group-a1b2c3d4ef", GroupNamespaceName("grp-a1b2c3d4ef"))
	assert.Regexp(dnsLabel, GroupNamespaceName("grp-a1b2c3d4ef"))
}
