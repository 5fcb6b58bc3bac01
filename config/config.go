package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"devspace-operator/assert"
	"devspace-operator/interfaces"

	"github.com/joho/godotenv"
)

type Config struct {
	data               map[string]*configValue
	dataLock           sync.RWMutex
	onChangedCallbacks []onChangeCallbackConfig
	onChangedLock      sync.RWMutex
}

type configValue struct {
	value       *string
	declaration interfaces.ConfigDeclaration
	getCounter  atomic.Uint64
	setCounter  atomic.Uint64
}

type onChangeCallbackConfig struct {
	onKeys   []string
	callback func(key string, value string, isSecret bool)
}

func NewConfig() *Config {
	return &Config{
		data:               make(map[string]*configValue),
		dataLock:           sync.RWMutex{},
		onChangedCallbacks: []onChangeCallbackConfig{},
		onChangedLock:      sync.RWMutex{},
	}
}

func (c *Config) Declare(opts interfaces.ConfigDeclaration) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()

	assert.Assert(opts.Key != "", fmt.Errorf("'Key' in 'interfaces.ConfigDeclaration' cant be '\"\"': %#v", opts))
	assert.Assert(!strings.Contains(opts.Key, "\n"), fmt.Errorf("'Key' in 'interfaces.ConfigDeclaration' may not contain newlines: %#v", opts))

	_, ok := c.data[opts.Key]
	assert.Assert(!ok, fmt.Errorf("a declaration with key '%s' already exists", opts.Key))

	cv := configValue{
		value:       nil,
		declaration: opts,
		getCounter:  atomic.Uint64{},
		setCounter:  atomic.Uint64{},
	}
	if opts.DefaultValue != nil {
		value := *opts.DefaultValue
		cv.value = &value
	}
	c.data[opts.Key] = &cv
}

func (c *Config) Get(key string) string {
	value, err := c.TryGet(key)
	assert.Assert(err == nil, err)
	return value
}

func (c *Config) TryGet(key string) (string, error) {
	c.dataLock.RLock()
	defer c.dataLock.RUnlock()

	cv, ok := c.data[key]
	if !ok {
		return "", fmt.Errorf("config key '%s' was never declared", key)
	}
	if cv.value == nil {
		return "", fmt.Errorf("config key '%s' is not initialized", key)
	}
	cv.getCounter.Add(1)
	return *cv.value, nil
}

func (c *Config) Set(key string, value string) {
	err := c.TrySet(key, value)
	assert.Assert(err == nil, err)
}

func (c *Config) TrySet(key string, value string) error {
	var isSecret bool
	err := func() error {
		c.dataLock.Lock()
		defer c.dataLock.Unlock()

		cv, ok := c.data[key]
		if !ok {
			return fmt.Errorf("config key '%s' was never declared", key)
		}
		if cv.declaration.Validate != nil {
			err := cv.declaration.Validate(value)
			if err != nil {
				return fmt.Errorf("validation for key '%s' failed: %s", key, err.Error())
			}
		}
		cv.value = &value
		cv.setCounter.Add(1)
		isSecret = cv.declaration.IsSecret
		return nil
	}()
	if err != nil {
		return err
	}

	c.onChangedLock.RLock()
	defer c.onChangedLock.RUnlock()
	for _, cb := range c.onChangedCallbacks {
		if len(cb.onKeys) == 0 || contains(cb.onKeys, key) {
			cb.callback(key, value, isSecret)
		}
	}
	return nil
}

func (c *Config) IsSet(key string) bool {
	c.dataLock.RLock()
	defer c.dataLock.RUnlock()

	cv, ok := c.data[key]
	if !ok {
		return false
	}
	return cv.value != nil && *cv.value != ""
}

func (c *Config) OnChanged(onKeys []string, cb func(key string, value string, isSecret bool)) {
	c.onChangedLock.Lock()
	defer c.onChangedLock.Unlock()
	c.onChangedCallbacks = append(c.onChangedCallbacks, onChangeCallbackConfig{
		onKeys:   onKeys,
		callback: cb,
	})
}

// Init loads `.env` (when present) and then resolves every declared
// key against its ENV variable list. Explicit `Set()` calls win over
// environment values because Init only fills keys from the env lookup.
func (c *Config) Init() {
	_ = godotenv.Load()

	c.dataLock.Lock()
	defer c.dataLock.Unlock()

	for key, cv := range c.data {
		envs := append([]string{key}, cv.declaration.Envs...)
		for _, env := range envs {
			envValue, ok := os.LookupEnv(env)
			if !ok {
				continue
			}
			if cv.declaration.Validate != nil {
				err := cv.declaration.Validate(envValue)
				assert.Assert(err == nil, fmt.Errorf("validation failed for '%s' while parsing env variable '%s' -> %s", key, env, err))
			}
			value := envValue
			cv.value = &value
			break
		}
	}
}

func (c *Config) AsEnvs() string {
	c.dataLock.RLock()
	defer c.dataLock.RUnlock()

	keys := make([]string, 0, len(c.data))
	for key := range c.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		cv := c.data[key]
		value := ""
		if cv.value != nil {
			value = *cv.value
		}
		if cv.declaration.Description != nil {
			builder.WriteString(fmt.Sprintf("# %s\n", *cv.declaration.Description))
		}
		builder.WriteString(fmt.Sprintf("%s=%s\n", key, value))
	}
	return builder.String()
}

func (c *Config) Variables() []interfaces.ConfigVariable {
	c.dataLock.RLock()
	defer c.dataLock.RUnlock()

	result := make([]interfaces.ConfigVariable, 0, len(c.data))
	for key, cv := range c.data {
		value := ""
		if cv.value != nil {
			value = *cv.value
		}
		result = append(result, interfaces.ConfigVariable{
			Key:      key,
			Value:    value,
			IsSecret: cv.declaration.IsSecret,
		})
	}
	return result
}

func (c *Config) Validate() {
	errs := []error{}
	func() {
		c.dataLock.RLock()
		defer c.dataLock.RUnlock()

		for key, cv := range c.data {
			if cv.value == nil {
				errs = append(errs, fmt.Errorf("Value for Key '%s' is not initialized.", key))
				continue
			}
			if cv.declaration.Validate != nil {
				err := cv.declaration.Validate(*cv.value)
				if err != nil {
					errs = append(errs, fmt.Errorf("Validation for Key '%s' failed: %s", key, err.Error()))
					continue
				}
			}
		}
	}()

	if len(errs) > 0 {
		fmt.Println()
		fmt.Println("Configuration Values")
		fmt.Println()
		fmt.Println("```env")
		fmt.Print(c.AsEnvs())
		fmt.Println("```")
		fmt.Println()
		for _, err := range errs {
			fmt.Printf("ERROR: %s\n", err.Error())
		}
		fmt.Printf("Found %d error(s) when validating configuration values.\n", len(errs))
		os.Exit(1)
	}
}

func contains(haystack []string, needle string) bool {
	for _, entry := range haystack {
		if entry == needle {
			return true
		}
	}
	return false
}
