package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/rootline/clusterwatch/internal/kinds"
	"github.com/rootline/clusterwatch/internal/types"
)

var testConn = types.ClusterConnection{
	ID:      "prod-east",
	Cluster: "prod-east",
}

func handler(t *testing.T, name string) kinds.Handler {
	t.Helper()
	handlers, err := kinds.ForNames([]string{name})
	if err != nil {
		t.Fatalf("resolve handler %q: %v", name, err)
	}
	return handlers[0]
}

func TestEventIDDeterministic(t *testing.T) {
	h := handler(t, "configmaps")

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:            "web-config",
			Namespace:       "default",
			ResourceVersion: "12345",
		},
	}

	first, err := Event(testConn, h, types.TransitionUpdated, cm)
	require.NoError(t, err)
	second, err := Event(testConn, h, types.TransitionUpdated, cm)
	require.NoError(t, err)

	assert.Equal(t, "prod-east:default:configmap:web-config:12345", first.EventID)
	assert.Equal(t, first.EventID, second.EventID)

	// A new revision of the same object yields a distinct id.
	cm.ResourceVersion = "12399"
	third, err := Event(testConn, h, types.TransitionUpdated, cm)
	require.NoError(t, err)
	assert.NotEqual(t, first.EventID, third.EventID)
}

func TestEventFields(t *testing.T) {
	h := handler(t, "configmaps")

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:              "web-config",
			Namespace:         "default",
			ResourceVersion:   "12345",
			CreationTimestamp: metav1.NewTime(created),
			Labels:            map[string]string{"app": "web"},
		},
		Data: map[string]string{"log_level": "info"},
	}

	event, err := Event(testConn, h, types.TransitionCreated, cm)
	require.NoError(t, err)

	assert.Equal(t, "kubernetes", event.Source)
	assert.Equal(t, "[ConfigMap Created] web-config", event.Title)
	assert.Equal(t, "kubernetes/default", event.Author)
	assert.Equal(t, "k8s://prod-east/default/configmaps/web-config", event.Locator)
	assert.Equal(t, created, event.Timestamp)
	assert.Equal(t, "created", event.Description["event_type"])
	assert.Equal(t, "default", event.Description["namespace"])
	assert.Equal(t, "configmap", event.Metadata.ResourceType)
	assert.Equal(t, map[string]string{"app": "web"}, event.Metadata.Labels)
}

func TestTitleUsesFailureReason(t *testing.T) {
	h := handler(t, "pods")

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:            "web-0",
			Namespace:       "default",
			ResourceVersion: "777",
		},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{
				Name: "web",
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
				},
			}},
		},
	}

	event, err := Event(testConn, h, types.TransitionUpdated, pod)
	require.NoError(t, err)
	assert.Equal(t, "[Pod CrashLoopBackOff] web-0", event.Title)

	// The reason only replaces the word on updates.
	event, err = Event(testConn, h, types.TransitionCreated, pod)
	require.NoError(t, err)
	assert.Equal(t, "[Pod Created] web-0", event.Title)
}

func TestClusterScopedResource(t *testing.T) {
	h := handler(t, "roles")

	// Roles are namespaced, but an empty namespace exercises the
	// cluster-scope path the same way a cluster-scoped kind would.
	role := &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{
			Name:            "bootstrap",
			ResourceVersion: "9",
		},
	}

	event, err := Event(testConn, h, types.TransitionCreated, role)
	require.NoError(t, err)

	assert.Equal(t, "prod-east:cluster:role:bootstrap:9", event.EventID)
	assert.Equal(t, "kubernetes/cluster", event.Author)
	assert.Equal(t, "cluster-wide", event.Description["namespace"])
	assert.Equal(t, "cluster", event.Metadata.Namespace)
}

func TestSecretEventRedacted(t *testing.T) {
	h := handler(t, "secrets")

	s := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:            "db-creds",
			Namespace:       "default",
			ResourceVersion: "42",
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{"password": []byte("s3cr3t-value")},
	}

	event, err := Event(testConn, h, types.TransitionUpdated, s)
	require.NoError(t, err)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cr3t-value")
	assert.Equal(t, []string{"password"}, event.Description["data_keys"])
}

func TestTimestampFallsBackToNow(t *testing.T) {
	h := handler(t, "configmaps")

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "c", Namespace: "default", ResourceVersion: "1"},
	}

	before := time.Now().UTC()
	event, err := Event(testConn, h, types.TransitionDeleted, cm)
	require.NoError(t, err)

	assert.False(t, event.Timestamp.Before(before))
	assert.False(t, event.Timestamp.After(time.Now().UTC()))
}
