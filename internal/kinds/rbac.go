package kinds

import (
	"context"

	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/types"
)

// AccessSummary hashes the full rule or subject set of an RBAC
// object. RBAC kinds always report anyway; the hash exists so the
// cache stays uniform across kinds.
type AccessSummary struct {
	Hash string
}

func (s AccessSummary) Changed(prev types.Summary) bool {
	p, ok := prev.(AccessSummary)
	if !ok {
		return true
	}
	return s.Hash != p.Hash
}

type roleHandler struct{}

func (roleHandler) Kind() Kind          { return Roles }
func (roleHandler) DisplayName() string { return "Role" }

func (roleHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.RbacV1().Roles(metav1.NamespaceAll).Watch(ctx, opts)
}

func (roleHandler) Skip(runtime.Object) bool { return false }

// RBAC changes are audit-critical, every observed transition reports.
func (roleHandler) AlwaysSignificant() bool { return true }

func (roleHandler) Reduce(obj runtime.Object) types.Summary {
	role, ok := obj.(*rbacv1.Role)
	if !ok {
		return nil
	}
	return AccessSummary{Hash: hashJSON(role.Rules)}
}

func (roleHandler) Describe(obj runtime.Object) map[string]interface{} {
	role, ok := obj.(*rbacv1.Role)
	if !ok {
		return nil
	}
	rules := make([]map[string]interface{}, 0, len(role.Rules))
	for _, rule := range role.Rules {
		rules = append(rules, map[string]interface{}{
			"api_groups": emptyIfNil(rule.APIGroups),
			"resources":  emptyIfNil(rule.Resources),
			"verbs":      emptyIfNil(rule.Verbs),
		})
	}
	return map[string]interface{}{
		"rules":  rules,
		"labels": role.Labels,
	}
}

type roleBindingHandler struct{}

func (roleBindingHandler) Kind() Kind          { return RoleBindings }
func (roleBindingHandler) DisplayName() string { return "RoleBinding" }

func (roleBindingHandler) Watch(ctx context.Context, client kubernetes.Interface, opts metav1.ListOptions) (watch.Interface, error) {
	return client.RbacV1().RoleBindings(metav1.NamespaceAll).Watch(ctx, opts)
}

func (roleBindingHandler) Skip(runtime.Object) bool { return false }
func (roleBindingHandler) AlwaysSignificant() bool  { return true }

func (roleBindingHandler) Reduce(obj runtime.Object) types.Summary {
	rb, ok := obj.(*rbacv1.RoleBinding)
	if !ok {
		return nil
	}
	return AccessSummary{Hash: hashJSON(map[string]interface{}{
		"role_ref": rb.RoleRef,
		"subjects": rb.Subjects,
	})}
}

func (roleBindingHandler) Describe(obj runtime.Object) map[string]interface{} {
	rb, ok := obj.(*rbacv1.RoleBinding)
	if !ok {
		return nil
	}
	description := map[string]interface{}{
		"role_ref": map[string]interface{}{
			"kind": rb.RoleRef.Kind,
			"name": rb.RoleRef.Name,
		},
		"labels": rb.Labels,
	}
	if len(rb.Subjects) > 0 {
		subjects := make([]map[string]interface{}, 0, len(rb.Subjects))
		for _, s := range rb.Subjects {
			subjects = append(subjects, map[string]interface{}{
				"kind":      s.Kind,
				"name":      s.Name,
				"namespace": s.Namespace,
			})
		}
		description["subjects"] = subjects
	}
	return description
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
