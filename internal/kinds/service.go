package kinds

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/types"
)

// EndpointSummary diffs a service on its type and exposed port
// tuples. Endpoint/selector churn stays out of it.
type EndpointSummary struct {
	Type  string
	Ports []string
}

func (s EndpointSummary) Changed(prev types.Summary) bool {
	p, ok := prev.(EndpointSummary)
	if !ok {
		return true
	}
	return s.Type != p.Type || !equalStrings(s.Ports, p.Ports)
}

type serviceHandler struct{}

func (serviceHandler) Kind() Kind          { return Services }
func (serviceHandler) DisplayName() string { return "Service" }

func (serviceHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.CoreV1().Services(metav1.NamespaceAll).Watch(ctx, opts)
}

func (serviceHandler) Skip(runtime.Object) bool { return false }
func (serviceHandler) AlwaysSignificant() bool  { return false }

func (serviceHandler) Reduce(obj runtime.Object) types.Summary {
	svc, ok := obj.(*corev1.Service)
	if !ok {
		return nil
	}
	ports := make([]string, 0, len(svc.Spec.Ports))
	for _, p := range svc.Spec.Ports {
		ports = append(ports, fmt.Sprintf("%d/%s->%s", p.Port, p.Protocol, p.TargetPort.String()))
	}
	return EndpointSummary{
		Type:  string(svc.Spec.Type),
		Ports: ports,
	}
}

func (serviceHandler) Describe(obj runtime.Object) map[string]interface{} {
	svc, ok := obj.(*corev1.Service)
	if !ok {
		return nil
	}
	description := map[string]interface{}{
		"type":       string(svc.Spec.Type),
		"cluster_ip": svc.Spec.ClusterIP,
		"selector":   svc.Spec.Selector,
		"labels":     svc.Labels,
	}
	if len(svc.Spec.Ports) > 0 {
		ports := make([]map[string]interface{}, 0, len(svc.Spec.Ports))
		for _, p := range svc.Spec.Ports {
			ports = append(ports, map[string]interface{}{
				"port":        p.Port,
				"target_port": p.TargetPort.String(),
				"protocol":    string(p.Protocol),
			})
		}
		description["ports"] = ports
	}
	return description
}
