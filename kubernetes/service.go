package kubernetes

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// CreateWorkspaceService fronts one workspace workload with a
// ClusterIP service.
func CreateWorkspaceService(ctx context.Context, namespace string, workspaceId string, groupId string, name string) error {
	serviceClient := clientProvider.K8sClientSet().CoreV1().Services(namespace)

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    WorkspaceLabels(workspaceId, groupId, name),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: map[string]string{"app": name},
			Ports: []corev1.ServicePort{
				{
					Name:       "http",
					Port:       WorkspacePort,
					TargetPort: intstr.FromInt32(WorkspacePort),
				},
			},
		},
	}

	_, err := serviceClient.Create(ctx, service, CreateOptions())
	if err != nil {
		k8sLogger.Error("CreateWorkspaceService", "namespace", namespace, "name", name, "error", err)
	}
	return err
}

func ServiceExists(ctx context.Context, namespace string, name string) (bool, error) {
	serviceClient := clientProvider.K8sClientSet().CoreV1().Services(namespace)
	_, err := serviceClient.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func DeleteService(ctx context.Context, namespace string, name string) error {
	serviceClient := clientProvider.K8sClientSet().CoreV1().Services(namespace)
	err := serviceClient.Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		k8sLogger.Error("DeleteService", "namespace", namespace, "name", name, "error", err)
	}
	return err
}
