package core

import (
	"devspace-operator/assert"

	"github.com/go-playground/validator/v10"
	"github.com/jaevor/go-nanoid"
)

// Record keyspaces in the store. Composite keys are joined with the
// store separator, e.g. "workspace___ws-x7f3k2m9qa".
const (
	keyWorkspace  = "workspace"
	keyGroup      = "group"
	keyUser       = "user"
	keyMembership = "membership"

	indexUserEmail = "user-email"
)

var validate = validator.New()

var (
	newIdSuffix    = mustGenerator("abcdefghijklmnopqrstuvwxyz1234567890", 10)
	newAccessToken = mustGenerator("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890", 48)
)

func mustGenerator(alphabet string, length int) func() string {
	generator, err := nanoid.Custom(alphabet, length)
	assert.Assert(err == nil, "nanoid generator must initialize", err)
	return generator
}

func NewWorkspaceId() string {
	return "ws-" + newIdSuffix()
}

func NewGroupId() string {
	return "grp-" + newIdSuffix()
}

func NewUserId() string {
	return "usr-" + newIdSuffix()
}
