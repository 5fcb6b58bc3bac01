package kubernetes

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
)

// EnsureProxyStack creates the shared reverse proxy workload and
// service of a namespace. Created once per namespace; a second call is
// a no-op.
func EnsureProxyStack(ctx context.Context, namespace string) error {
	err := ensureProxyDeployment(ctx, namespace)
	if err != nil {
		return err
	}
	return ensureProxyService(ctx, namespace)
}

func ensureProxyDeployment(ctx context.Context, namespace string) error {
	deploymentClient := clientProvider.K8sClientSet().AppsV1().Deployments(namespace)
	labels := ManagedLabels(ProxyName)

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ProxyName,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{"app": ProxyName},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "proxy",
							Image: config.Get("DSO_PROXY_IMAGE"),
							Ports: []corev1.ContainerPort{
								{Name: "http", ContainerPort: ProxyPort},
							},
							VolumeMounts: []corev1.VolumeMount{
								{
									Name:      "proxy-config",
									MountPath: "/etc/nginx/conf.d",
									ReadOnly:  true,
								},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "proxy-config",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: ProxyConfigName},
								},
							},
						},
					},
				},
			},
		},
	}

	_, err := deploymentClient.Create(ctx, deployment, CreateOptions())
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	if err != nil {
		k8sLogger.Error("ensureProxyDeployment", "namespace", namespace, "error", err)
	}
	return err
}

func ensureProxyService(ctx context.Context, namespace string) error {
	serviceClient := clientProvider.K8sClientSet().CoreV1().Services(namespace)

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ProxyName,
			Namespace: namespace,
			Labels:    ManagedLabels(ProxyName),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: map[string]string{"app": ProxyName},
			Ports: []corev1.ServicePort{
				{
					Name:       "http",
					Port:       ProxyPort,
					TargetPort: intstr.FromInt32(ProxyPort),
				},
			},
		},
	}

	_, err := serviceClient.Create(ctx, service, CreateOptions())
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	if err != nil {
		k8sLogger.Error("ensureProxyService", "namespace", namespace, "error", err)
	}
	return err
}

// DeleteProxyStack removes the shared proxy workload, service, both
// proxy config objects and the aggregate route object. Only used on
// the create-workspace failure path and namespace teardown.
func DeleteProxyStack(ctx context.Context, namespace string) error {
	var firstErr error

	deploymentClient := clientProvider.K8sClientSet().AppsV1().Deployments(namespace)
	if err := deploymentClient.Delete(ctx, ProxyName, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
		k8sLogger.Error("DeleteProxyStack deployment", "namespace", namespace, "error", err)
		firstErr = err
	}

	if err := DeleteService(ctx, namespace, ProxyName); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := DeleteConfigMap(ctx, namespace, ProxyConfigName); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := DeleteConfigMap(ctx, namespace, ProxyMembersName); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := DeleteRouteIngress(ctx, namespace); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
