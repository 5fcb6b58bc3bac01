package kubernetes

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ApplyConfigMap creates or fully replaces a config object. The proxy
// synthesizer relies on the full replace: rendered route sets are
// never patched in place.
func ApplyConfigMap(ctx context.Context, namespace string, name string, data map[string]string) error {
	configMapClient := clientProvider.K8sClientSet().CoreV1().ConfigMaps(namespace)

	configMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    ManagedLabels(name),
		},
		Data: data,
	}

	_, err := configMapClient.Create(ctx, configMap, CreateOptions())
	if apierrors.IsAlreadyExists(err) {
		_, err = configMapClient.Update(ctx, configMap, UpdateOptions())
	}
	if err != nil {
		k8sLogger.Error("ApplyConfigMap", "namespace", namespace, "name", name, "error", err)
	}
	return err
}

// GetConfigMapData returns the data of a config object, or nil when it
// does not exist.
func GetConfigMapData(ctx context.Context, namespace string, name string) (map[string]string, error) {
	configMapClient := clientProvider.K8sClientSet().CoreV1().ConfigMaps(namespace)
	configMap, err := configMapClient.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return configMap.Data, nil
}

func DeleteConfigMap(ctx context.Context, namespace string, name string) error {
	configMapClient := clientProvider.K8sClientSet().CoreV1().ConfigMaps(namespace)
	err := configMapClient.Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		k8sLogger.Error("DeleteConfigMap", "namespace", namespace, "name", name, "error", err)
	}
	return err
}
