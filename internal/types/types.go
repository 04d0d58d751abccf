package types

import "time"

// Transition classifies an observed state change of a cluster resource.
type Transition string

const (
	TransitionCreated Transition = "created"
	TransitionUpdated Transition = "updated"
	TransitionDeleted Transition = "deleted"
)

// ResourceIdentity uniquely addresses one monitored object.
type ResourceIdentity struct {
	Cluster   string
	Namespace string
	Kind      string
	Name      string
}

func (id ResourceIdentity) String() string {
	ns := id.Namespace
	if ns == "" {
		ns = "cluster"
	}
	return id.Cluster + ":" + ns + ":" + id.Kind + ":" + id.Name
}

// Summary is a kind-specific reduced projection of a resource, holding
// only the fields that participate in change detection.
type Summary interface {
	// Changed reports whether this summary differs from a previously
	// cached one on the kind's diffable fields. prev is never nil.
	Changed(prev Summary) bool
}

// ChangeEvent is the canonical change record written to the event store.
// Immutable once written; EventID is deterministic so that duplicate
// deliveries collapse into a single stored row.
type ChangeEvent struct {
	Source      string                 `json:"source"`
	EventID     string                 `json:"event_id"`
	Transition  Transition             `json:"transition"`
	Title       string                 `json:"title"`
	Description map[string]interface{} `json:"description"`
	Author      string                 `json:"author"`
	Timestamp   time.Time              `json:"timestamp"`
	Locator     string                 `json:"locator"`
	Status      string                 `json:"status"`
	Metadata    EventMetadata          `json:"metadata"`
}

// EventMetadata tags a ChangeEvent for timeline queries.
type EventMetadata struct {
	Cluster      string            `json:"cluster"`
	Namespace    string            `json:"namespace"`
	ResourceType string            `json:"resource_type"`
	Labels       map[string]string `json:"labels"`
}

// ClusterConnection identifies one monitored cluster. Owned by the
// external connection registry; the engine treats it as read-only
// apart from the checkpoint tokens persisted through the Checkpoint
// Store.
type ClusterConnection struct {
	ID          string
	Cluster     string
	APIServer   string
	BearerToken string
	InsecureTLS bool
	Namespaces  []string // empty means all namespaces
	Kinds       []string
}

// WatchesNamespace reports whether observations from ns are in scope
// for this connection. An empty namespace set matches everything,
// including cluster-scoped objects.
func (c ClusterConnection) WatchesNamespace(ns string) bool {
	if len(c.Namespaces) == 0 {
		return true
	}
	for _, want := range c.Namespaces {
		if want == ns {
			return true
		}
	}
	return false
}
