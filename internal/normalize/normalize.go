// Package normalize converts observed resources into canonical
// ChangeEvent records.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/rootline/clusterwatch/internal/kinds"
	"github.com/rootline/clusterwatch/internal/types"
)

const source = "kubernetes"

var transitionWords = map[types.Transition]string{
	types.TransitionCreated: "Created",
	types.TransitionUpdated: "Updated",
	types.TransitionDeleted: "Deleted",
}

// Event builds the canonical change record for one observation. The
// event id embeds the continuation token of the observation, which
// makes redelivered observations collapse to the same stored row.
func Event(conn types.ClusterConnection, h kinds.Handler, transition types.Transition, obj runtime.Object) (types.ChangeEvent, error) {
	accessor, err := meta.Accessor(obj)
	if err != nil {
		return types.ChangeEvent{}, fmt.Errorf("failed to read object metadata: %w", err)
	}

	namespace := accessor.GetNamespace()
	idNamespace := namespace
	if idNamespace == "" {
		idNamespace = "cluster"
	}

	name := accessor.GetName()
	resourceType := strings.ToLower(h.DisplayName())
	eventID := fmt.Sprintf("%s:%s:%s:%s:%s",
		conn.Cluster, idNamespace, resourceType, name, accessor.GetResourceVersion())

	description := h.Describe(obj)
	if description == nil {
		description = map[string]interface{}{}
	}
	description["event_type"] = string(transition)
	if namespace != "" {
		description["namespace"] = namespace
	} else {
		description["namespace"] = "cluster-wide"
	}

	timestamp := time.Now().UTC()
	if created := accessor.GetCreationTimestamp(); !created.IsZero() {
		timestamp = created.Time.UTC()
	}

	return types.ChangeEvent{
		Source:      source,
		EventID:     eventID,
		Transition:  transition,
		Title:       title(h, transition, obj, name),
		Description: description,
		Author:      source + "/" + idNamespace,
		Timestamp:   timestamp,
		Locator:     fmt.Sprintf("k8s://%s/%s/%s/%s", conn.Cluster, idNamespace, h.Kind(), name),
		Status:      string(transition),
		Metadata: types.EventMetadata{
			Cluster:      conn.Cluster,
			Namespace:    idNamespace,
			ResourceType: resourceType,
			Labels:       accessor.GetLabels(),
		},
	}, nil
}

// title derives the event title from the kind and transition. For
// updates of kinds that carry a failure state, the most relevant
// failure reason replaces the plain "Updated" word.
func title(h kinds.Handler, transition types.Transition, obj runtime.Object, name string) string {
	word := transitionWords[transition]
	if transition == types.TransitionUpdated {
		if rp, ok := h.(kinds.ReasonProvider); ok {
			if reason := rp.FailureReason(obj); reason != "" {
				word = reason
			}
		}
	}
	return fmt.Sprintf("[%s %s] %s", h.DisplayName(), word, name)
}
