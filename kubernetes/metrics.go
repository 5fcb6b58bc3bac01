package kubernetes

import (
	"context"
	"time"

	"devspace-operator/dtos"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// WorkspaceUsage sums live pod metrics over all pods of one workspace.
func WorkspaceUsage(ctx context.Context, namespace string, workspaceObjectName string) (*dtos.UsageSnapshot, error) {
	podMetricsClient := clientProvider.MetricsClientSet().MetricsV1beta1().PodMetricses(namespace)

	metricsList, err := podMetricsClient.List(ctx, metav1.ListOptions{
		LabelSelector: "app=" + workspaceObjectName,
	})
	if err != nil {
		return nil, err
	}

	snapshot := &dtos.UsageSnapshot{CollectedAt: time.Now()}
	for _, podMetrics := range metricsList.Items {
		if podMetrics.Window.Duration > 0 {
			snapshot.WindowInMs = podMetrics.Window.Duration.Milliseconds()
		}
		for _, container := range podMetrics.Containers {
			if cpu, ok := container.Usage["cpu"]; ok {
				snapshot.CpuMilli += cpu.MilliValue()
			}
			if memory, ok := container.Usage["memory"]; ok {
				snapshot.MemoryBytes += memory.Value()
			}
		}
	}
	return snapshot, nil
}
