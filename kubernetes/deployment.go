package kubernetes

import (
	"context"
	"fmt"

	"devspace-operator/dtos"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/retry"
	"k8s.io/utils/ptr"
)

// DeploymentStatus is the live state of a workspace workload as read
// from the cluster.
type DeploymentStatus struct {
	Found           bool
	Image           string
	DesiredReplicas int32
	ReadyReplicas   int32
}

type WorkspaceDeploymentSpec struct {
	WorkspaceId string
	GroupId     string
	Name        string
	Image       string
	Resources   dtos.ResourceSizing
	Replicas    int32
	SecretName  string
}

func CreateWorkspaceDeployment(ctx context.Context, namespace string, spec WorkspaceDeploymentSpec) error {
	requests, err := sizingResourceList(spec.Resources)
	if err != nil {
		return err
	}

	deploymentClient := clientProvider.K8sClientSet().AppsV1().Deployments(namespace)
	labels := WorkspaceLabels(spec.WorkspaceId, spec.GroupId, spec.Name)

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(spec.Replicas),
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{"app": spec.Name},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "workspace",
							Image: spec.Image,
							Ports: []corev1.ContainerPort{
								{Name: "http", ContainerPort: WorkspacePort},
							},
							EnvFrom: []corev1.EnvFromSource{
								{
									SecretRef: &corev1.SecretEnvSource{
										LocalObjectReference: corev1.LocalObjectReference{Name: spec.SecretName},
									},
								},
							},
							Resources: corev1.ResourceRequirements{
								Requests: requests,
								Limits:   requests,
							},
						},
					},
				},
			},
		},
	}

	_, err = deploymentClient.Create(ctx, deployment, CreateOptions())
	if err != nil {
		k8sLogger.Error("CreateWorkspaceDeployment", "namespace", namespace, "name", spec.Name, "error", err)
	}
	return err
}

func DeleteDeployment(ctx context.Context, namespace string, name string) error {
	deploymentClient := clientProvider.K8sClientSet().AppsV1().Deployments(namespace)
	err := deploymentClient.Delete(ctx, name, DeleteOptions())
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		k8sLogger.Error("DeleteDeployment", "namespace", namespace, "name", name, "error", err)
	}
	return err
}

// ScaleDeployment sets the desired replica count. It does not wait for
// the workload to converge; the reconciler picks the new state up.
func ScaleDeployment(ctx context.Context, namespace string, name string, replicas int32) error {
	deploymentClient := clientProvider.K8sClientSet().AppsV1().Deployments(namespace)

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		deployment, err := deploymentClient.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		deployment.Spec.Replicas = ptr.To(replicas)
		_, err = deploymentClient.Update(ctx, deployment, UpdateOptions())
		return err
	})
	if err != nil {
		k8sLogger.Error("ScaleDeployment", "namespace", namespace, "name", name, "replicas", replicas, "error", err)
	}
	return err
}

// GetDeploymentStatus reads back the live workload state. A missing
// deployment is reported as Found=false, not as an error.
func GetDeploymentStatus(ctx context.Context, namespace string, name string) (DeploymentStatus, error) {
	deploymentClient := clientProvider.K8sClientSet().AppsV1().Deployments(namespace)

	deployment, err := deploymentClient.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return DeploymentStatus{Found: false}, nil
	}
	if err != nil {
		return DeploymentStatus{}, err
	}

	status := DeploymentStatus{
		Found:         true,
		ReadyReplicas: deployment.Status.ReadyReplicas,
	}
	if deployment.Spec.Replicas != nil {
		status.DesiredReplicas = *deployment.Spec.Replicas
	}
	if len(deployment.Spec.Template.Spec.Containers) > 0 {
		status.Image = deployment.Spec.Template.Spec.Containers[0].Image
	}
	return status, nil
}

// DeriveWorkspaceStatus maps the live workload state onto the
// workspace status enum.
func DeriveWorkspaceStatus(status DeploymentStatus) dtos.WorkspaceStatus {
	if !status.Found {
		return dtos.WorkspaceStatusError
	}
	if status.DesiredReplicas == 0 {
		if status.ReadyReplicas > 0 {
			return dtos.WorkspaceStatusStopping
		}
		return dtos.WorkspaceStatusStopped
	}
	if status.ReadyReplicas >= status.DesiredReplicas {
		return dtos.WorkspaceStatusRunning
	}
	return dtos.WorkspaceStatusStarting
}

func sizingResourceList(sizing dtos.ResourceSizing) (corev1.ResourceList, error) {
	cpu, err := resource.ParseQuantity(sizing.Cpu)
	if err != nil {
		return nil, fmt.Errorf("invalid cpu %q: %w", sizing.Cpu, err)
	}
	memory, err := resource.ParseQuantity(sizing.Memory)
	if err != nil {
		return nil, fmt.Errorf("invalid memory %q: %w", sizing.Memory, err)
	}
	storage, err := resource.ParseQuantity(sizing.Storage)
	if err != nil {
		return nil, fmt.Errorf("invalid storage %q: %w", sizing.Storage, err)
	}

	return corev1.ResourceList{
		corev1.ResourceCPU:              cpu,
		corev1.ResourceMemory:           memory,
		corev1.ResourceEphemeralStorage: storage,
	}, nil
}
