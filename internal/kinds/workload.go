package kinds

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/types"
)

// WorkloadSummary diffs a workload on its container images and, where
// the kind has one, its replica count. Rollouts and scaling show up
// here; status churn does not.
type WorkloadSummary struct {
	Images      []string
	Replicas    int32
	HasReplicas bool
}

func (s WorkloadSummary) Changed(prev types.Summary) bool {
	p, ok := prev.(WorkloadSummary)
	if !ok {
		return true
	}
	if !equalStrings(s.Images, p.Images) {
		return true
	}
	return s.HasReplicas && s.Replicas != p.Replicas
}

func containerImages(containers []corev1.Container) []string {
	images := make([]string, 0, len(containers))
	for _, c := range containers {
		images = append(images, c.Image)
	}
	return images
}

func imageList(containers []corev1.Container) []map[string]interface{} {
	images := make([]map[string]interface{}, 0, len(containers))
	for _, c := range containers {
		images = append(images, map[string]interface{}{
			"name":  c.Name,
			"image": c.Image,
		})
	}
	return images
}

type deploymentHandler struct{}

func (deploymentHandler) Kind() Kind          { return Deployments }
func (deploymentHandler) DisplayName() string { return "Deployment" }

func (deploymentHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.AppsV1().Deployments(metav1.NamespaceAll).Watch(ctx, opts)
}

func (deploymentHandler) Skip(runtime.Object) bool { return false }
func (deploymentHandler) AlwaysSignificant() bool  { return false }

func (deploymentHandler) Reduce(obj runtime.Object) types.Summary {
	d, ok := obj.(*appsv1.Deployment)
	if !ok {
		return nil
	}
	summary := WorkloadSummary{
		Images:      containerImages(d.Spec.Template.Spec.Containers),
		HasReplicas: true,
	}
	if d.Spec.Replicas != nil {
		summary.Replicas = *d.Spec.Replicas
	}
	return summary
}

func (deploymentHandler) Describe(obj runtime.Object) map[string]interface{} {
	d, ok := obj.(*appsv1.Deployment)
	if !ok {
		return nil
	}
	strategy := "RollingUpdate"
	if d.Spec.Strategy.Type != "" {
		strategy = string(d.Spec.Strategy.Type)
	}
	var replicas int32
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}
	return map[string]interface{}{
		"images":   imageList(d.Spec.Template.Spec.Containers),
		"replicas": replicas,
		"strategy": strategy,
		"labels":   d.Labels,
	}
}

type statefulSetHandler struct{}

func (statefulSetHandler) Kind() Kind          { return StatefulSets }
func (statefulSetHandler) DisplayName() string { return "StatefulSet" }

func (statefulSetHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.AppsV1().StatefulSets(metav1.NamespaceAll).Watch(ctx, opts)
}

func (statefulSetHandler) Skip(runtime.Object) bool { return false }
func (statefulSetHandler) AlwaysSignificant() bool  { return false }

func (statefulSetHandler) Reduce(obj runtime.Object) types.Summary {
	ss, ok := obj.(*appsv1.StatefulSet)
	if !ok {
		return nil
	}
	summary := WorkloadSummary{
		Images:      containerImages(ss.Spec.Template.Spec.Containers),
		HasReplicas: true,
	}
	if ss.Spec.Replicas != nil {
		summary.Replicas = *ss.Spec.Replicas
	}
	return summary
}

func (statefulSetHandler) Describe(obj runtime.Object) map[string]interface{} {
	ss, ok := obj.(*appsv1.StatefulSet)
	if !ok {
		return nil
	}
	var replicas int32
	if ss.Spec.Replicas != nil {
		replicas = *ss.Spec.Replicas
	}
	return map[string]interface{}{
		"images":   imageList(ss.Spec.Template.Spec.Containers),
		"replicas": replicas,
		"labels":   ss.Labels,
	}
}

type daemonSetHandler struct{}

func (daemonSetHandler) Kind() Kind          { return DaemonSets }
func (daemonSetHandler) DisplayName() string { return "DaemonSet" }

func (daemonSetHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.AppsV1().DaemonSets(metav1.NamespaceAll).Watch(ctx, opts)
}

func (daemonSetHandler) Skip(runtime.Object) bool { return false }
func (daemonSetHandler) AlwaysSignificant() bool  { return false }

// DaemonSets scale with nodes, so only image changes are diffable.
func (daemonSetHandler) Reduce(obj runtime.Object) types.Summary {
	ds, ok := obj.(*appsv1.DaemonSet)
	if !ok {
		return nil
	}
	return WorkloadSummary{
		Images: containerImages(ds.Spec.Template.Spec.Containers),
	}
}

func (daemonSetHandler) Describe(obj runtime.Object) map[string]interface{} {
	ds, ok := obj.(*appsv1.DaemonSet)
	if !ok {
		return nil
	}
	return map[string]interface{}{
		"images": imageList(ds.Spec.Template.Spec.Containers),
		"labels": ds.Labels,
	}
}
