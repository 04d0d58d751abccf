package kinds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

func TestAllStableOrder(t *testing.T) {
	first := All()
	second := All()

	require.Len(t, first, 10)
	for i := range first {
		assert.Equal(t, first[i].Kind(), second[i].Kind())
	}
	assert.Equal(t, Pods, first[0].Kind())
}

func TestForNames(t *testing.T) {
	handlers, err := ForNames([]string{"deployments", "secrets"})
	require.NoError(t, err)
	require.Len(t, handlers, 2)
	assert.Equal(t, Deployments, handlers[0].Kind())
	assert.Equal(t, Secrets, handlers[1].Kind())
}

func TestForNamesEmptyMeansAll(t *testing.T) {
	handlers, err := ForNames(nil)
	require.NoError(t, err)
	assert.Len(t, handlers, len(All()))
}

func TestForNamesRejectsUnknown(t *testing.T) {
	_, err := ForNames([]string{"deployments", "cronjobs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cronjobs")
}

func TestServiceReduce(t *testing.T) {
	h := serviceHandler{}

	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Spec: corev1.ServiceSpec{
			Type: corev1.ServiceTypeClusterIP,
			Ports: []corev1.ServicePort{{
				Port:       80,
				Protocol:   corev1.ProtocolTCP,
				TargetPort: intstr.FromInt32(8080),
			}},
		},
	}

	summary := h.Reduce(svc).(EndpointSummary)
	assert.Equal(t, "ClusterIP", summary.Type)
	assert.Equal(t, []string{"80/TCP->8080"}, summary.Ports)

	// Type flips (e.g. ClusterIP -> LoadBalancer) are significant.
	flipped := summary
	flipped.Type = "LoadBalancer"
	assert.True(t, flipped.Changed(summary))
	assert.False(t, summary.Changed(summary))
}

func TestConfigMapReduce(t *testing.T) {
	h := configMapHandler{}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "web-config", Namespace: "default"},
		Data:       map[string]string{"log_level": "info"},
	}

	before := h.Reduce(cm).(ConfigSummary)
	require.NotEmpty(t, before.Hash)

	cm.Data["log_level"] = "debug"
	after := h.Reduce(cm).(ConfigSummary)
	assert.True(t, after.Changed(before))

	cm.Data["log_level"] = "info"
	assert.False(t, h.Reduce(cm).(ConfigSummary).Changed(before))
}

func TestConfigMapReduceEmpty(t *testing.T) {
	h := configMapHandler{}

	cm := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "empty"}}
	summary := h.Reduce(cm).(ConfigSummary)
	assert.Empty(t, summary.Hash)
}

func TestIngressReduce(t *testing.T) {
	h := ingressHandler{}

	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{Host: "b.example.com"},
				{Host: "a.example.com"},
			},
		},
	}

	summary := h.Reduce(ing).(IngressSummary)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, summary.Hosts)
}

func TestRoleAlwaysSignificant(t *testing.T) {
	assert.True(t, roleHandler{}.AlwaysSignificant())
	assert.True(t, roleBindingHandler{}.AlwaysSignificant())
	assert.False(t, podHandler{}.AlwaysSignificant())
}

func TestRoleReduceHashesRules(t *testing.T) {
	h := roleHandler{}

	role := &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{Name: "viewer", Namespace: "default"},
		Rules: []rbacv1.PolicyRule{{
			APIGroups: []string{""},
			Resources: []string{"pods"},
			Verbs:     []string{"get", "list"},
		}},
	}

	before := h.Reduce(role).(AccessSummary)
	require.NotEmpty(t, before.Hash)

	role.Rules[0].Verbs = append(role.Rules[0].Verbs, "delete")
	after := h.Reduce(role).(AccessSummary)
	assert.True(t, after.Changed(before))
}

func TestRoleBindingReduceHashesSubjects(t *testing.T) {
	h := roleBindingHandler{}

	rb := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: "viewer-binding", Namespace: "default"},
		RoleRef:    rbacv1.RoleRef{Kind: "Role", Name: "viewer"},
		Subjects: []rbacv1.Subject{
			{Kind: "User", Name: "alice"},
		},
	}

	before := h.Reduce(rb).(AccessSummary)

	rb.Subjects = append(rb.Subjects, rbacv1.Subject{Kind: "User", Name: "mallory"})
	after := h.Reduce(rb).(AccessSummary)
	assert.True(t, after.Changed(before))
}
