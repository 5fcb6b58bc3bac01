package kubernetes

import (
	"log/slog"

	"devspace-operator/assert"
	"devspace-operator/interfaces"
	"devspace-operator/k8sclient"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

const DEPLOYMENTNAME = "devspace-operator"

const (
	LabelManagedBy   = "app.kubernetes.io/managed-by"
	LabelWorkspaceId = "devspace.io/workspace-id"
	LabelGroupId     = "devspace.io/group-id"
)

var (
	k8sLogger      *slog.Logger
	clientProvider k8sclient.K8sClientProvider
	config         interfaces.ConfigModule
)

func Setup(logManager interfaces.LogManager, provider k8sclient.K8sClientProvider, configModule interfaces.ConfigModule) {
	assert.Assert(provider != nil)
	assert.Assert(configModule != nil)
	k8sLogger = logManager.CreateLogger("kubernetes")
	clientProvider = provider
	config = configModule
}

func WorkspaceLabels(workspaceId string, groupId string, objectName string) map[string]string {
	return map[string]string{
		"app":            objectName,
		LabelManagedBy:   DEPLOYMENTNAME,
		LabelWorkspaceId: workspaceId,
		LabelGroupId:     groupId,
	}
}

func ManagedLabels(objectName string) map[string]string {
	return map[string]string{
		"app":          objectName,
		LabelManagedBy: DEPLOYMENTNAME,
	}
}

func CreateOptions() metav1.CreateOptions {
	return metav1.CreateOptions{FieldManager: DEPLOYMENTNAME}
}

func UpdateOptions() metav1.UpdateOptions {
	return metav1.UpdateOptions{FieldManager: DEPLOYMENTNAME}
}

func ApplyOptions() metav1.ApplyOptions {
	return metav1.ApplyOptions{Force: true, FieldManager: DEPLOYMENTNAME}
}

func DeleteOptions() metav1.DeleteOptions {
	return metav1.DeleteOptions{GracePeriodSeconds: ptr.To[int64](5)}
}
