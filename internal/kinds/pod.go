package kinds

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/types"
)

// Waiting/terminated reasons that indicate a pod is in trouble. Any
// of these makes an update significant regardless of other fields.
var podFailureReasons = map[string]bool{
	"CrashLoopBackOff":           true,
	"ImagePullBackOff":           true,
	"ErrImagePull":               true,
	"CreateContainerConfigError": true,
	"InvalidImageName":           true,
	"Error":                      true,
	"OOMKilled":                  true,
}

// PodSummary tracks the failure state of a pod: a backoff/crash
// reason and the total restart count across containers. Phase-only
// changes are deliberately not diffable, they produce too much noise.
type PodSummary struct {
	FailureReason string
	Restarts      int32
}

func (s PodSummary) Changed(prev types.Summary) bool {
	p, ok := prev.(PodSummary)
	if !ok {
		return true
	}
	if s.FailureReason != "" && s.FailureReason != p.FailureReason {
		return true
	}
	// Restart counters only move forward; a new restart is a signal.
	return s.Restarts > p.Restarts
}

type podHandler struct{}

func (podHandler) Kind() Kind          { return Pods }
func (podHandler) DisplayName() string { return "Pod" }

func (podHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.CoreV1().Pods(metav1.NamespaceAll).Watch(ctx, opts)
}

func (podHandler) Skip(runtime.Object) bool { return false }
func (podHandler) AlwaysSignificant() bool  { return false }

func (podHandler) Reduce(obj runtime.Object) types.Summary {
	pod, ok := obj.(*corev1.Pod)
	if !ok {
		return nil
	}

	summary := PodSummary{}
	for _, cs := range pod.Status.ContainerStatuses {
		summary.Restarts += cs.RestartCount
		if summary.FailureReason == "" {
			summary.FailureReason = containerFailureReason(cs)
		}
	}
	return summary
}

func (h podHandler) FailureReason(obj runtime.Object) string {
	pod, ok := obj.(*corev1.Pod)
	if !ok {
		return ""
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if reason := containerFailureReason(cs); reason != "" {
			return reason
		}
	}
	return ""
}

// containerFailureReason extracts a waiting or terminated reason that
// is on the known failure list.
func containerFailureReason(cs corev1.ContainerStatus) string {
	if cs.State.Waiting != nil && podFailureReasons[cs.State.Waiting.Reason] {
		return cs.State.Waiting.Reason
	}
	if cs.State.Terminated != nil && podFailureReasons[cs.State.Terminated.Reason] {
		return cs.State.Terminated.Reason
	}
	return ""
}

func (podHandler) Describe(obj runtime.Object) map[string]interface{} {
	pod, ok := obj.(*corev1.Pod)
	if !ok {
		return nil
	}

	description := map[string]interface{}{
		"phase":       string(pod.Status.Phase),
		"node":        pod.Spec.NodeName,
		"labels":      pod.Labels,
		"annotations": pod.Annotations,
	}

	if len(pod.Spec.Containers) > 0 {
		specs := make([]map[string]interface{}, 0, len(pod.Spec.Containers))
		for _, c := range pod.Spec.Containers {
			spec := map[string]interface{}{
				"name":  c.Name,
				"image": c.Image,
			}
			if len(c.Ports) > 0 {
				ports := make([]map[string]interface{}, 0, len(c.Ports))
				for _, p := range c.Ports {
					ports = append(ports, map[string]interface{}{
						"container_port": p.ContainerPort,
						"protocol":       string(p.Protocol),
					})
				}
				spec["ports"] = ports
			}
			if len(c.Resources.Requests) > 0 {
				spec["requests"] = quantityMap(c.Resources.Requests)
			}
			if len(c.Resources.Limits) > 0 {
				spec["limits"] = quantityMap(c.Resources.Limits)
			}
			// Env values stay out of the record; the count alone is
			// enough to spot configuration drift.
			if len(c.Env) > 0 {
				spec["env_count"] = len(c.Env)
			}
			specs = append(specs, spec)
		}
		description["container_specs"] = specs
	}

	if len(pod.Spec.Volumes) > 0 {
		volumes := make([]map[string]interface{}, 0, len(pod.Spec.Volumes))
		for _, v := range pod.Spec.Volumes {
			volumes = append(volumes, map[string]interface{}{
				"name": v.Name,
				"type": volumeType(v),
			})
		}
		description["volumes"] = volumes
	}

	if len(pod.Status.ContainerStatuses) > 0 {
		statuses := make([]map[string]interface{}, 0, len(pod.Status.ContainerStatuses))
		for _, cs := range pod.Status.ContainerStatuses {
			info := map[string]interface{}{
				"name":          cs.Name,
				"image":         cs.Image,
				"ready":         cs.Ready,
				"restart_count": cs.RestartCount,
			}
			switch {
			case cs.State.Waiting != nil:
				info["state"] = "waiting"
				info["reason"] = cs.State.Waiting.Reason
				info["message"] = cs.State.Waiting.Message
			case cs.State.Terminated != nil:
				info["state"] = "terminated"
				info["reason"] = cs.State.Terminated.Reason
				info["exit_code"] = cs.State.Terminated.ExitCode
			case cs.State.Running != nil:
				info["state"] = "running"
			}
			statuses = append(statuses, info)
		}
		description["containers"] = statuses
	}

	return description
}

func volumeType(v corev1.Volume) string {
	switch {
	case v.ConfigMap != nil:
		return "configMap:" + v.ConfigMap.Name
	case v.Secret != nil:
		return "secret:" + v.Secret.SecretName
	case v.PersistentVolumeClaim != nil:
		return "pvc:" + v.PersistentVolumeClaim.ClaimName
	case v.EmptyDir != nil:
		return "emptyDir"
	case v.HostPath != nil:
		return "hostPath:" + v.HostPath.Path
	default:
		return "other"
	}
}

func quantityMap(list corev1.ResourceList) map[string]string {
	out := make(map[string]string, len(list))
	for name, qty := range list {
		out[string(name)] = qty.String()
	}
	return out
}
