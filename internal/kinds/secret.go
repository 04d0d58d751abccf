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

// KeySetSummary diffs a secret on its sorted key names only. Values
// never enter the cache or any stored record.
type KeySetSummary struct {
	Keys []string
}

func (s KeySetSummary) Changed(prev types.Summary) bool {
	p, ok := prev.(KeySetSummary)
	if !ok {
		return true
	}
	return !equalStrings(s.Keys, p.Keys)
}

type secretHandler struct{}

func (secretHandler) Kind() Kind          { return Secrets }
func (secretHandler) DisplayName() string { return "Secret" }

func (secretHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.CoreV1().Secrets(metav1.NamespaceAll).Watch(ctx, opts)
}

// Service account tokens are machine-issued and churn constantly;
// they are excluded from tracking altogether.
func (secretHandler) Skip(obj runtime.Object) bool {
	secret, ok := obj.(*corev1.Secret)
	if !ok {
		return false
	}
	return secret.Type == corev1.SecretTypeServiceAccountToken
}

func (secretHandler) AlwaysSignificant() bool { return false }

func (secretHandler) Reduce(obj runtime.Object) types.Summary {
	secret, ok := obj.(*corev1.Secret)
	if !ok {
		return nil
	}
	return KeySetSummary{Keys: secretKeys(secret)}
}

func (secretHandler) Describe(obj runtime.Object) map[string]interface{} {
	secret, ok := obj.(*corev1.Secret)
	if !ok {
		return nil
	}
	keys := secretKeys(secret)
	return map[string]interface{}{
		"data_keys": keys,
		"key_count": len(keys),
		"type":      string(secret.Type),
		"labels":    secret.Labels,
	}
}

func secretKeys(secret *corev1.Secret) []string {
	keys := make([]string, 0, len(secret.Data))
	for k := range secret.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
