package k8sclient

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"devspace-operator/assert"
	"devspace-operator/interfaces"
	"devspace-operator/shutdown"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

type ExecutionContext int8

const (
	executionContextCluster ExecutionContext = iota
	executionContextLocal
)

type K8sClientProvider interface {
	K8sClientSet() kubernetes.Interface
	MetricsClientSet() metricsv.Interface
	RunsInCluster() bool
	ClientConfig() *rest.Config
}

type k8sClientProvider struct {
	clientConfig     *rest.Config
	clientSet        *kubernetes.Clientset
	metricsClientSet *metricsv.Clientset
	executionContext ExecutionContext
	config           interfaces.ConfigModule
}

func NewK8sClientProvider(logger *slog.Logger, configModule interfaces.ConfigModule) K8sClientProvider {
	assert.Assert(logger != nil)
	assert.Assert(configModule != nil)

	provider := new(k8sClientProvider)
	provider.config = configModule

	config, err := provider.detectAndGetKubeConfig(logger)
	if err != nil {
		logger.Error("failed to detect kubeconfig", "error", err)
		shutdown.SendShutdownSignal(true)
		select {}
	}

	provider.clientSet, err = kubernetes.NewForConfig(config)
	if err != nil {
		logger.Error("invalid kubeconfig - cant create `*kubernetes.Clientset`", "error", err)
		shutdown.SendShutdownSignal(true)
		select {}
	}

	provider.metricsClientSet, err = metricsv.NewForConfig(config)
	if err != nil {
		logger.Error("invalid kubeconfig - cant create `*metricsv.Clientset`", "error", err)
		shutdown.SendShutdownSignal(true)
		select {}
	}

	provider.clientConfig = config

	return provider
}

func (self *k8sClientProvider) K8sClientSet() kubernetes.Interface {
	return self.clientSet
}

func (self *k8sClientProvider) MetricsClientSet() metricsv.Interface {
	return self.metricsClientSet
}

func (self *k8sClientProvider) RunsInCluster() bool {
	return self.executionContext == executionContextCluster
}

func (self *k8sClientProvider) ClientConfig() *rest.Config {
	return self.clientConfig
}

func (self *k8sClientProvider) detectAndGetKubeConfig(logger *slog.Logger) (*rest.Config, error) {
	config, err := rest.InClusterConfig()
	if err == nil {
		self.executionContext = executionContextCluster
		return config, nil
	}
	if err != rest.ErrNotInCluster {
		return nil, err
	}

	self.executionContext = executionContextLocal
	kubeconfigPath := os.Getenv("KUBECONFIG")
	if kubeconfigPath == "" {
		home := homedir.HomeDir()
		if home == "" {
			return nil, fmt.Errorf("not in cluster and no home directory to look up a kubeconfig in")
		}
		kubeconfigPath = filepath.Join(home, ".kube", "config")
	}

	logger.Info("running outside the cluster", "kubeconfig", kubeconfigPath)
	return clientcmd.BuildConfigFromFlags("", kubeconfigPath)
}
