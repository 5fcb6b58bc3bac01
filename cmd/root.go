package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"devspace-operator/assert"
	"devspace-operator/config"
	"devspace-operator/dtos"
	"devspace-operator/interfaces"
	"devspace-operator/logging"
	"devspace-operator/shutdown"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"
)

const defaultLogDir string = "logs"

var slogManager *logging.SlogManager
var cmdLogger *slog.Logger
var klogLogger *slog.Logger
var cmdConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "devspace-operator",
	Short: "Provision and orchestrate developer workspaces on kubernetes",
	Long: `
Use devspace-operator to run per-user developer workspaces inside per-group namespaces of your cluster. 🚀`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cc.Init(&cc.Config{
		RootCmd:  rootCmd,
		Headings: cc.HiCyan + cc.Bold + cc.Underline,
		Commands: cc.HiYellow + cc.Bold,
		Example:  cc.Italic,
		ExecName: cc.Bold,
		Flags:    cc.Bold,
	})

	err := rootCmd.Execute()
	if err != nil {
		cmdLogger.Error("rootCmd failed", "error", err)
		shutdown.SendShutdownSignal(true)
		select {}
	}
}

func init() {
	// The ConfigModule is initialized AFTER the LoggingModule, so the
	// log dir and level are read straight from the environment here.
	// Both are also declared as config keys for documentation purposes.
	logDir := defaultLogDir
	if path := os.Getenv("DSO_LOG_DIR"); path != "" {
		logDir = path
	}
	slogManager = logging.NewSlogManager(logDir, parseLogLevel(os.Getenv("DSO_LOG_LEVEL")))
	cmdLogger = slogManager.CreateLogger("cmd")
	klogLogger = slogManager.CreateLogger("klog")
	klog.SetSlogLogger(klogLogger)

	assert.Assert(slogManager != nil, "slogManager has to be initialized before cmdConfig")
	cmdConfig = config.NewConfig()
	cmdConfig.OnChanged(nil, func(key string, value string, isSecret bool) {
		logging.UpdateConfigSecrets(cmdConfig.Variables())
	})
	initConfigDeclarations()
	cmdConfig.Init()
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToUpper(raw) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initConfigDeclarations() {
	workDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current workdir: %s", err.Error()))
	}
	assert.Assert(cmdConfig != nil, "This has to be called **after** initializing `cmdConfig`")

	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_LOG_DIR",
		DefaultValue: ptr.To(defaultLogDir),
		Description:  ptr.To("directory the component log files are written to"),
		Envs:         []string{"LOG_DIR"},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_LOG_LEVEL",
		DefaultValue: ptr.To("INFO"),
		Description:  ptr.To("minimum log level (DEBUG, INFO, WARN, ERROR)"),
		Envs:         []string{"LOG_LEVEL"},
		Validate: func(value string) error {
			allowed := []string{"DEBUG", "INFO", "WARN", "ERROR"}
			for _, level := range allowed {
				if strings.EqualFold(value, level) {
					return nil
				}
			}
			return fmt.Errorf("'DSO_LOG_LEVEL' needs to be one of '%v' but is '%s'", allowed, value)
		},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_API_PORT",
		DefaultValue: ptr.To("8000"),
		Description:  ptr.To("port the operator API listens on"),
		Envs:         []string{"API_PORT"},
		Validate: func(value string) error {
			_, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("'DSO_API_PORT' needs to be an integer: %s", err.Error())
			}
			return nil
		},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_STORE_PATH",
		DefaultValue: ptr.To(filepath.Join(workDir, "devspace-operator-data")),
		Description:  ptr.To("path to the record store"),
		Envs:         []string{"STORE_PATH"},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_PROXY_IMAGE",
		DefaultValue: ptr.To("nginx:1.27-alpine"),
		Description:  ptr.To("image of the shared per-namespace reverse proxy"),
		Envs:         []string{"PROXY_IMAGE"},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_DEFAULT_WORKSPACE_IMAGE",
		DefaultValue: ptr.To("codercom/code-server:latest"),
		Description:  ptr.To("fallback workspace image when neither the request nor the group sets one"),
		Envs:         []string{"DEFAULT_WORKSPACE_IMAGE"},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_DEFAULT_TIER",
		DefaultValue: ptr.To("small"),
		Description:  ptr.To("sizing tier applied when a workspace request names none"),
		Envs:         []string{"DEFAULT_TIER"},
		Validate: func(value string) error {
			if _, ok := dtos.BuiltinTiers[value]; !ok {
				return fmt.Errorf("'DSO_DEFAULT_TIER' needs to be a known tier but is '%s'", value)
			}
			return nil
		},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_PROBE_DELAY_SECONDS",
		DefaultValue: ptr.To("5"),
		Description:  ptr.To("delay before the post-action convergence probe re-reads live state"),
		Envs:         []string{"PROBE_DELAY_SECONDS"},
		Validate: func(value string) error {
			seconds, err := strconv.Atoi(value)
			if err != nil || seconds < 0 {
				return fmt.Errorf("'DSO_PROBE_DELAY_SECONDS' needs to be a non-negative integer but is '%s'", value)
			}
			return nil
		},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_MIRROR_ADDR",
		DefaultValue: ptr.To(""),
		Description:  ptr.To("optional valkey/redis address workspace status changes are mirrored to"),
		Envs:         []string{"MIRROR_ADDR"},
	})
	cmdConfig.Declare(interfaces.ConfigDeclaration{
		Key:          "DSO_MIRROR_PASSWORD",
		DefaultValue: ptr.To(""),
		Description:  ptr.To("password of the status mirror"),
		Envs:         []string{"MIRROR_PASSWORD"},
		IsSecret:     true,
	})
}
