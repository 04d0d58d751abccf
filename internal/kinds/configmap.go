package kinds

import (
	"context"
	"sort"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/types"
)

// ConfigSummary diffs a config blob on a content hash, so any data
// edit registers exactly once without storing the content twice.
type ConfigSummary struct {
	Hash string
}

func (s ConfigSummary) Changed(prev types.Summary) bool {
	p, ok := prev.(ConfigSummary)
	if !ok {
		return true
	}
	return s.Hash != p.Hash
}

type configMapHandler struct{}

func (configMapHandler) Kind() Kind          { return ConfigMaps }
func (configMapHandler) DisplayName() string { return "ConfigMap" }

func (configMapHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.CoreV1().ConfigMaps(metav1.NamespaceAll).Watch(ctx, opts)
}

func (configMapHandler) Skip(runtime.Object) bool { return false }
func (configMapHandler) AlwaysSignificant() bool  { return false }

func (configMapHandler) Reduce(obj runtime.Object) types.Summary {
	cm, ok := obj.(*corev1.ConfigMap)
	if !ok {
		return nil
	}
	if len(cm.Data) == 0 && len(cm.BinaryData) == 0 {
		return ConfigSummary{}
	}
	binaryKeys := make([]string, 0, len(cm.BinaryData))
	for k := range cm.BinaryData {
		binaryKeys = append(binaryKeys, k)
	}
	sort.Strings(binaryKeys)
	return ConfigSummary{
		Hash: hashJSON(map[string]interface{}{
			"data":        cm.Data,
			"binary_keys": binaryKeys,
		}),
	}
}

// ConfigMaps are not secret-like, so values go into the description.
func (configMapHandler) Describe(obj runtime.Object) map[string]interface{} {
	cm, ok := obj.(*corev1.ConfigMap)
	if !ok {
		return nil
	}
	binaryKeys := make([]string, 0, len(cm.BinaryData))
	for k := range cm.BinaryData {
		binaryKeys = append(binaryKeys, k)
	}
	sort.Strings(binaryKeys)
	return map[string]interface{}{
		"data":        cm.Data,
		"binary_data": binaryKeys,
		"labels":      cm.Labels,
	}
}
