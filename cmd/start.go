package cmd

import (
	"devspace-operator/api"
	"devspace-operator/core"
	"devspace-operator/k8sclient"
	"devspace-operator/kubernetes"
	"devspace-operator/logging"
	"devspace-operator/shutdown"
	"devspace-operator/store"
	"devspace-operator/version"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the workspace orchestration control plane",
	Run: func(cmd *cobra.Command, args []string) {
		RunStart()
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

// RunStart wires all modules in dependency order and serves the API
// until a shutdown signal arrives.
func RunStart() {
	cmdConfig.Validate()
	slogManager.SetLogLevel(parseLogLevel(cmdConfig.Get("DSO_LOG_LEVEL")))

	cmdLogger.Info("Starting devspace-operator",
		"version", version.Ver,
		"branch", version.Branch,
		"hash", version.GitCommitHash,
		"buildAt", version.BuildTimestamp,
	)

	clientProvider := k8sclient.NewK8sClientProvider(cmdLogger, cmdConfig)
	kubernetes.Setup(slogManager, clientProvider, cmdConfig)
	store.Setup(slogManager)

	recordStore, err := store.NewStore(cmdConfig.Get("DSO_STORE_PATH"))
	if err != nil {
		cmdLogger.Error("failed to open record store", "error", err)
		shutdown.SendShutdownSignal(true)
		select {}
	}
	recordStore.StartGC()
	shutdown.Add(func() {
		if err := recordStore.Close(); err != nil {
			cmdLogger.Error("failed to close record store", "error", err)
		}
	})

	logging.UpdateConfigSecrets(cmdConfig.Variables())

	tenants := core.NewTenantManager(slogManager, recordStore)
	proxy := core.NewProxySynthesizer(slogManager)
	provisioner := core.NewProvisioner(slogManager, proxy)
	mirror := core.NewStatusMirror(slogManager, cmdConfig)
	if mirror != nil {
		shutdown.Add(func() { _ = mirror.Close() })
	}
	reconciler := core.NewReconciler(slogManager, recordStore, mirror)
	lifecycle := core.NewLifecycleController(slogManager, cmdConfig, recordStore, tenants, provisioner, proxy, reconciler)

	api.Setup(slogManager, cmdConfig, lifecycle, tenants)
	api.InitApi()
}
