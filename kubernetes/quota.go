package kubernetes

import (
	"context"
	"fmt"

	"devspace-operator/dtos"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const quotaName = "workspace-quota"

// EnsureResourceQuota creates or updates the namespace-wide quota
// object backing a group.
func EnsureResourceQuota(ctx context.Context, namespace string, quota dtos.ResourceQuota) error {
	hard, err := quotaResourceList(quota)
	if err != nil {
		return err
	}

	quotaClient := clientProvider.K8sClientSet().CoreV1().ResourceQuotas(namespace)

	resourceQuota := &corev1.ResourceQuota{
		ObjectMeta: metav1.ObjectMeta{
			Name:      quotaName,
			Namespace: namespace,
			Labels:    ManagedLabels(quotaName),
		},
		Spec: corev1.ResourceQuotaSpec{Hard: hard},
	}

	_, err = quotaClient.Create(ctx, resourceQuota, CreateOptions())
	if apierrors.IsAlreadyExists(err) {
		_, err = quotaClient.Update(ctx, resourceQuota, UpdateOptions())
	}
	if err != nil {
		k8sLogger.Error("EnsureResourceQuota", "namespace", namespace, "error", err)
	}
	return err
}

func GetResourceQuota(ctx context.Context, namespace string) (*corev1.ResourceQuota, error) {
	quotaClient := clientProvider.K8sClientSet().CoreV1().ResourceQuotas(namespace)
	return quotaClient.Get(ctx, quotaName, metav1.GetOptions{})
}

func quotaResourceList(quota dtos.ResourceQuota) (corev1.ResourceList, error) {
	cpu, err := resource.ParseQuantity(quota.Cpu)
	if err != nil {
		return nil, fmt.Errorf("invalid quota cpu %q: %w", quota.Cpu, err)
	}
	memory, err := resource.ParseQuantity(quota.Memory)
	if err != nil {
		return nil, fmt.Errorf("invalid quota memory %q: %w", quota.Memory, err)
	}
	storage, err := resource.ParseQuantity(quota.Storage)
	if err != nil {
		return nil, fmt.Errorf("invalid quota storage %q: %w", quota.Storage, err)
	}

	return corev1.ResourceList{
		corev1.ResourceRequestsCPU:     cpu,
		corev1.ResourceRequestsMemory:  memory,
		corev1.ResourceRequestsStorage: storage,
		corev1.ResourcePods:            *resource.NewQuantity(quota.MaxPods, resource.DecimalSI),
	}, nil
}
