package config_test

import (
	"fmt"
	"testing"

	"devspace-operator/config"
	"devspace-operator/interfaces"

	"github.com/stretchr/testify/assert"
	"k8s.io/utils/ptr"
)

// compile time check
func TestConfigAdheresToConfigModuleInterface(t *testing.T) {
	t.Parallel()
	testfunc := func(w interfaces.ConfigModule) {}
	testfunc(config.NewConfig())
}

func TestSetUndeclaredValue(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	c := config.NewConfig()

	assert.Panics(func() { c.Set("foo", "bar") }, "cant set value of undeclared variable")
}

func TestTrySetUndeclaredValue(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	c := config.NewConfig()

	err := c.TrySet("foo", "bar")
	assert.Error(err, "cant set value of undeclared variable")
}

func TestGetUndeclaredPanics(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	c := config.NewConfig()

	assert.Panics(func() { c.Get("foo") }, "cant get value of undeclared variable")
}

func TestDeclareWithDefaultValue(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	c := config.NewConfig()
	c.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_API_PORT",
		DefaultValue: ptr.To("8080"),
	})

	assert.Equal("8080", c.Get("DSO_API_PORT"))
	assert.True(c.IsSet("DSO_API_PORT"))
}

func TestSetAndGet(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	c := config.NewConfig()
	c.Declare(interfaces.ConfigDeclaration{Key: "DSO_DEFAULT_TIER"})

	assert.False(c.IsSet("DSO_DEFAULT_TIER"))
	c.Set("DSO_DEFAULT_TIER", "small")
	assert.Equal("small", c.Get("DSO_DEFAULT_TIER"))
}

func TestValidationRejectsBadValues(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	c := config.NewConfig()
	c.Declare(interfaces.ConfigDeclaration{
		Key: "DSO_PROBE_DELAY_SECONDS",
		Validate: func(value string) error {
			if value == "" {
				return fmt.Errorf("may not be empty")
			}
			return nil
		},
	})

	err := c.TrySet("DSO_PROBE_DELAY_SECONDS", "")
	assert.Error(err)
	err = c.TrySet("DSO_PROBE_DELAY_SECONDS", "10")
	assert.NoError(err)
}

func TestOnChangedFiresForSubscribedKeys(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	c := config.NewConfig()
	c.Declare(interfaces.ConfigDeclaration{Key: "DSO_DEFAULT_WORKSPACE_IMAGE"})
	c.Declare(interfaces.ConfigDeclaration{Key: "DSO_MIRROR_ADDR"})

	var seenKey, seenValue string
	calls := 0
	c.OnChanged([]string{"DSO_DEFAULT_WORKSPACE_IMAGE"}, func(key string, value string, isSecret bool) {
		seenKey = key
		seenValue = value
		calls++
	})

	c.Set("DSO_MIRROR_ADDR", "localhost:6379")
	c.Set("DSO_DEFAULT_WORKSPACE_IMAGE", "codercom/code-server:latest")

	assert.Equal(1, calls)
	assert.Equal("DSO_DEFAULT_WORKSPACE_IMAGE", seenKey)
	assert.Equal("codercom/code-server:latest", seenValue)
}

func TestVariablesMarksSecrets(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	c := config.NewConfig()
	c.Declare(interfaces.ConfigDeclaration{Key: "DSO_MIRROR_PASSWORD", IsSecret: true})
	c.Set("DSO_MIRROR_PASSWORD", "hunter2")

	vars := c.Variables()
	assert.Len(vars, 1)
	assert.True(vars[0].IsSecret)
	assert.Equal("hunter2", vars[0].Value)
}
