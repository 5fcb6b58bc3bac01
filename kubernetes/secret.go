package kubernetes

import (
	"context"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	corev1 "k8s.io/api/core/v1"
)

const accessTokenKey = "ACCESS_TOKEN"

// CreateWorkspaceSecret stores the generated access credential of one
// workspace next to its workload.
func CreateWorkspaceSecret(ctx context.Context, namespace string, workspaceId string, groupId string, name string, accessToken string) error {
	secretClient := clientProvider.K8sClientSet().CoreV1().Secrets(namespace)

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    WorkspaceLabels(workspaceId, groupId, name),
		},
		Type: corev1.SecretTypeOpaque,
		StringData: map[string]string{
			accessTokenKey: accessToken,
		},
	}

	_, err := secretClient.Create(ctx, secret, CreateOptions())
	if err != nil {
		k8sLogger.Error("CreateWorkspaceSecret", "namespace", namespace, "name", name, "error", err)
	}
	return err
}

func SecretExists(ctx context.Context, namespace string, name string) (bool, error) {
	secretClient := clientProvider.K8sClientSet().CoreV1().Secrets(namespace)
	_, err := secretClient.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func DeleteSecret(ctx context.Context, namespace string, name string) error {
	secretClient := clientProvider.K8sClientSet().CoreV1().Secrets(namespace)
	err := secretClient.Delete(ctx, name, DeleteOptions())
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		k8sLogger.Error("DeleteSecret", "namespace", namespace, "name", name, "error", err)
	}
	return err
}
