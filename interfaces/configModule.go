package interfaces

type ConfigModule interface {
	// `Declare()` a config value without an initial value.
	Declare(opts ConfigDeclaration)

	// Same as `TryGet()`. Panics if it fails.
	Get(key string) string

	// `Try` to `Get` a config value.
	//
	// Fails if the `key` was not initialized.
	TryGet(key string) (string, error)

	// Same as `TrySet()`. Panics if it fails.
	Set(key string, value string)

	// `Try` to `Set` the value for a `key`.
	//
	// Fails if:
	//   - key has not been declared
	//   - a validation was provided and failed
	TrySet(key string, value string) error

	// Check whether a declared key carries a non-empty value.
	IsSet(key string) bool

	// Register a callback for whenever one of `onKeys` is `Set()`.
	// An empty `onKeys` slice subscribes to every key.
	OnChanged(onKeys []string, cb func(key string, value string, isSecret bool))

	// Initialize the config object.
	// Loads `.env` and environment variables for every declared key.
	Init()

	// Export all configs in a format for .env files
	AsEnvs() string

	// Snapshot of all declared values. Used by the log redactor.
	Variables() []ConfigVariable

	// Check all values are initialized. Exits the program if issues have been found.
	Validate()
}

type ConfigDeclaration struct {
	// (required) Key of the config value
	Key string
	// (optional) Initial value
	DefaultValue *string
	// (optional) Human readable description
	Description *string
	// (optional) List of ENV variables to lookup while in Init()
	Envs []string
	// (optional) Marks the value as a secret. Secrets are redacted from logs.
	IsSecret bool
	// (optional) Validation to check if user provided values are valid
	Validate func(value string) error
}

type ConfigVariable struct {
	Key      string
	Value    string
	IsSecret bool
}
