package kubernetes

import (
	"bufio"
	"context"
	"io"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

// TailWorkspaceLogs tails the logs of every pod backing one workspace,
// lineCount lines per pod.
func TailWorkspaceLogs(ctx context.Context, namespace string, workspaceObjectName string, lineCount int64) (string, error) {
	podClient := clientProvider.K8sClientSet().CoreV1().Pods(namespace)

	podList, err := podClient.List(ctx, metav1.ListOptions{
		LabelSelector: "app=" + workspaceObjectName,
	})
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, pod := range podList.Items {
		opts := corev1.PodLogOptions{
			TailLines: ptr.To(lineCount),
		}
		restReq := podClient.GetLogs(pod.Name, &opts)
		stream, err := restReq.Stream(ctx)
		if err != nil {
			k8sLogger.Warn("TailWorkspaceLogs stream", "namespace", namespace, "pod", pod.Name, "error", err)
			continue
		}

		reader := bufio.NewReader(stream)
		for {
			buf := make([]byte, 2000)
			numBytes, err := reader.Read(buf)
			if numBytes > 0 {
				builder.Write(buf[:numBytes])
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				stream.Close()
				return builder.String(), err
			}
		}
		stream.Close()
	}
	return builder.String(), nil
}

// ListWorkspacePods lists the pods backing one workspace.
func ListWorkspacePods(ctx context.Context, namespace string, workspaceObjectName string) ([]corev1.Pod, error) {
	podClient := clientProvider.K8sClientSet().CoreV1().Pods(namespace)
	podList, err := podClient.List(ctx, metav1.ListOptions{
		LabelSelector: "app=" + workspaceObjectName,
	})
	if err != nil {
		return nil, err
	}
	return podList.Items, nil
}
