// Package kinds defines the fixed table of resource kinds the watch
// engine tracks. Each handler binds one kind to its watch endpoint,
// its reduced summary used for change detection, and its event
// description payload.
package kinds

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/types"
)

// Kind names double as checkpoint keys and locator path segments, so
// they are stable lowercase plurals.
type Kind string

const (
	Pods         Kind = "pods"
	Deployments  Kind = "deployments"
	StatefulSets Kind = "statefulsets"
	DaemonSets   Kind = "daemonsets"
	Services     Kind = "services"
	ConfigMaps   Kind = "configmaps"
	Secrets      Kind = "secrets"
	Ingresses    Kind = "ingresses"
	Roles        Kind = "roles"
	RoleBindings Kind = "rolebindings"
)

// Handler supplies the per-kind behavior of the watch engine.
type Handler interface {
	Kind() Kind
	// DisplayName is the capitalized kind used in event titles.
	DisplayName() string
	// Watch opens a subscription for this kind across all namespaces.
	Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error)
	// Skip reports objects excluded from tracking entirely, such as
	// machine-issued service account token secrets.
	Skip(obj runtime.Object) bool
	// Reduce projects the resource onto its diffable fields. Returns
	// nil when obj is not of the expected type.
	Reduce(obj runtime.Object) types.Summary
	// AlwaysSignificant marks kinds whose updates are reported
	// unconditionally, bypassing summary diffing.
	AlwaysSignificant() bool
	// Describe builds the structured description stored with an event.
	Describe(obj runtime.Object) map[string]interface{}
}

// ReasonProvider is implemented by handlers whose objects can carry a
// failure state worth surfacing in the event title.
type ReasonProvider interface {
	FailureReason(obj runtime.Object) string
}

// All returns every registered handler in a stable order.
func All() []Handler {
	return []Handler{
		podHandler{},
		deploymentHandler{},
		statefulSetHandler{},
		daemonSetHandler{},
		serviceHandler{},
		configMapHandler{},
		secretHandler{},
		ingressHandler{},
		roleHandler{},
		roleBindingHandler{},
	}
}

// ForNames resolves configured kind names to handlers, rejecting
// anything outside the fixed kind set.
func ForNames(names []string) ([]Handler, error) {
	byKind := make(map[Kind]Handler)
	for _, h := range All() {
		byKind[h.Kind()] = h
	}

	if len(names) == 0 {
		return All(), nil
	}

	handlers := make([]Handler, 0, len(names))
	for _, name := range names {
		h, ok := byKind[Kind(name)]
		if !ok {
			return nil, fmt.Errorf("unknown resource kind %q", name)
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

// hashJSON produces a stable content hash for summaries that diff on
// whole documents rather than individual fields.
func hashJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
