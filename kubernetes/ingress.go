package kubernetes

import (
	"context"

	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ApplyRouteIngress writes the single aggregate ingress object of a
// namespace: one path rule per given prefix, all pointing at the
// shared proxy service. The object is replaced wholesale on every
// rebuild.
func ApplyRouteIngress(ctx context.Context, namespace string, pathPrefixes []string) error {
	ingressClient := clientProvider.K8sClientSet().NetworkingV1().Ingresses(namespace)

	pathType := networkingv1.PathTypePrefix
	paths := make([]networkingv1.HTTPIngressPath, 0, len(pathPrefixes))
	for _, prefix := range pathPrefixes {
		paths = append(paths, networkingv1.HTTPIngressPath{
			Path:     prefix,
			PathType: &pathType,
			Backend: networkingv1.IngressBackend{
				Service: &networkingv1.IngressServiceBackend{
					Name: ProxyName,
					Port: networkingv1.ServiceBackendPort{Number: ProxyPort},
				},
			},
		})
	}

	ingress := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      RouteIngressName,
			Namespace: namespace,
			Labels:    ManagedLabels(RouteIngressName),
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{Paths: paths},
					},
				},
			},
		},
	}

	_, err := ingressClient.Create(ctx, ingress, CreateOptions())
	if apierrors.IsAlreadyExists(err) {
		_, err = ingressClient.Update(ctx, ingress, UpdateOptions())
	}
	if err != nil {
		k8sLogger.Error("ApplyRouteIngress", "namespace", namespace, "error", err)
	}
	return err
}

// GetRouteIngress returns nil when the aggregate route object does not
// exist yet.
func GetRouteIngress(ctx context.Context, namespace string) (*networkingv1.Ingress, error) {
	ingressClient := clientProvider.K8sClientSet().NetworkingV1().Ingresses(namespace)
	ingress, err := ingressClient.Get(ctx, RouteIngressName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ingress, nil
}

func DeleteRouteIngress(ctx context.Context, namespace string) error {
	ingressClient := clientProvider.K8sClientSet().NetworkingV1().Ingresses(namespace)
	err := ingressClient.Delete(ctx, RouteIngressName, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		k8sLogger.Error("DeleteRouteIngress", "namespace", namespace, "error", err)
	}
	return err
}
