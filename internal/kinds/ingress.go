package kinds

import (
	"context"
	"fmt"
	"sort"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/types"
)

// IngressSummary diffs an ingress on its sorted host list.
type IngressSummary struct {
	Hosts []string
}

func (s IngressSummary) Changed(prev types.Summary) bool {
	p, ok := prev.(IngressSummary)
	if !ok {
		return true
	}
	return !equalStrings(s.Hosts, p.Hosts)
}

type ingressHandler struct{}

func (ingressHandler) Kind() Kind          { return Ingresses }
func (ingressHandler) DisplayName() string { return "Ingress" }

func (ingressHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.NetworkingV1().Ingresses(metav1.NamespaceAll).Watch(ctx, opts)
}

func (ingressHandler) Skip(runtime.Object) bool { return false }
func (ingressHandler) AlwaysSignificant() bool  { return false }

func (ingressHandler) Reduce(obj runtime.Object) types.Summary {
	ing, ok := obj.(*networkingv1.Ingress)
	if !ok {
		return nil
	}
	hosts := make([]string, 0, len(ing.Spec.Rules))
	for _, rule := range ing.Spec.Rules {
		if rule.Host != "" {
			hosts = append(hosts, rule.Host)
		}
	}
	sort.Strings(hosts)
	return IngressSummary{Hosts: hosts}
}

func (ingressHandler) Describe(obj runtime.Object) map[string]interface{} {
	ing, ok := obj.(*networkingv1.Ingress)
	if !ok {
		return nil
	}
	description := map[string]interface{}{
		"labels": ing.Labels,
	}
	if len(ing.Spec.Rules) > 0 {
		rules := make([]map[string]interface{}, 0, len(ing.Spec.Rules))
		for _, rule := range ing.Spec.Rules {
			entry := map[string]interface{}{"host": rule.Host}
			if rule.HTTP != nil {
				paths := make([]map[string]interface{}, 0, len(rule.HTTP.Paths))
				for _, p := range rule.HTTP.Paths {
					path := map[string]interface{}{"path": p.Path}
					if p.Backend.Service != nil {
						path["backend"] = fmt.Sprintf("%s:%d", p.Backend.Service.Name, p.Backend.Service.Port.Number)
					}
					paths = append(paths, path)
				}
				entry["paths"] = paths
			}
			rules = append(rules, entry)
		}
		description["rules"] = rules
	}
	return description
}
