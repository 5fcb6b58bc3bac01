package kubernetes

import (
	"context"

	applyconfcore "k8s.io/client-go/applyconfigurations/core/v1"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EnsureNamespace creates-or-updates the namespace via server side
// apply. Calling it twice for the same name never errors.
func EnsureNamespace(ctx context.Context, name string) error {
	namespaceClient := clientProvider.K8sClientSet().CoreV1().Namespaces()

	namespace := applyconfcore.Namespace(name)
	namespace.WithLabels(map[string]string{
		"name":         name,
		LabelManagedBy: DEPLOYMENTNAME,
	})

	_, err := namespaceClient.Apply(ctx, namespace, ApplyOptions())
	if err != nil {
		k8sLogger.Error("EnsureNamespace", "namespace", name, "error", err)
	}
	return err
}

func NamespaceExists(ctx context.Context, name string) (bool, error) {
	namespaceClient := clientProvider.K8sClientSet().CoreV1().Namespaces()
	_, err := namespaceClient.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteNamespace removes the namespace and everything in it.
// Not-found is not an error.
func DeleteNamespace(ctx context.Context, name string) error {
	namespaceClient := clientProvider.K8sClientSet().CoreV1().Namespaces()
	err := namespaceClient.Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		k8sLogger.Error("DeleteNamespace", "namespace", name, "error", err)
	}
	return err
}
