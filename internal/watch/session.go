package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8swatch "k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/checkpoint"
	"github.com/rootline/clusterwatch/internal/filter"
	"github.com/rootline/clusterwatch/internal/kinds"
	"github.com/rootline/clusterwatch/internal/metrics"
	"github.com/rootline/clusterwatch/internal/normalize"
	"github.com/rootline/clusterwatch/internal/sink"
	"github.com/rootline/clusterwatch/internal/statecache"
	"github.com/rootline/clusterwatch/internal/types"
)

// errExpired marks a continuation token the API server can no longer
// resume from. Distinct from transient failures: it clears the
// checkpoint instead of backing off.
var errExpired = errors.New("continuation token expired")

var transitions = map[k8swatch.EventType]types.Transition{
	k8swatch.Added:    types.TransitionCreated,
	k8swatch.Modified: types.TransitionUpdated,
	k8swatch.Deleted:  types.TransitionDeleted,
}

// SessionConfig tunes one watch session.
type SessionConfig struct {
	// SessionTimeout bounds each subscription server-side; the stream
	// draining at this point is a normal reconnect, not a failure.
	SessionTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// DegradedThreshold is the consecutive-failure count past which
	// the session reports itself degraded. It never stops the session.
	DegradedThreshold int
}

func (c *SessionConfig) applyDefaults() {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 10 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.DegradedThreshold <= 0 {
		c.DegradedThreshold = 5
	}
}

// Result reports what one session did during a sync cycle.
type Result struct {
	Kind     kinds.Kind
	Observed int
	Emitted  int
	Resyncs  int
	Failures int
	// Degraded is set once the session crossed the consecutive-failure
	// threshold at any point during the cycle.
	Degraded bool
	// Err is non-nil only for fatal configuration problems (invalid
	// credential); everything else retries in place.
	Err error
}

// Session owns one token-bounded subscription to one resource kind
// and loops it until the cycle context ends:
// Connecting -> Streaming -> (Draining|Expired|Failed) -> Connecting.
type Session struct {
	conn        types.ClusterConnection
	handler     kinds.Handler
	client      kubernetes.Interface
	cache       *statecache.Cache
	checkpoints checkpoint.Store
	sink        sink.Sink
	cfg         SessionConfig
	log         zerolog.Logger

	consecutiveFailures int
	degraded            bool
	backoff             time.Duration
}

func NewSession(
	conn types.ClusterConnection,
	handler kinds.Handler,
	client kubernetes.Interface,
	cache *statecache.Cache,
	checkpoints checkpoint.Store,
	eventSink sink.Sink,
	cfg SessionConfig,
	log zerolog.Logger,
) *Session {
	cfg.applyDefaults()
	return &Session{
		conn:        conn,
		handler:     handler,
		client:      client,
		cache:       cache,
		checkpoints: checkpoints,
		sink:        eventSink,
		cfg:         cfg,
		log:         log.With().Str("kind", string(handler.Kind())).Logger(),
		backoff:     cfg.InitialBackoff,
	}
}

// Run loops the session until ctx is done. It only returns early for
// fatal configuration errors; transient failures back off and retry
// with the checkpoint intact.
func (s *Session) Run(ctx context.Context) Result {
	res := Result{Kind: s.handler.Kind()}
	defer s.clearDegraded()

	for {
		if ctx.Err() != nil {
			return res
		}

		token, _, err := s.checkpoints.Get(ctx, s.conn.ID, string(s.handler.Kind()))
		if err != nil {
			s.fail(ctx, &res, fmt.Errorf("failed to read checkpoint: %w", err))
			continue
		}

		w, err := s.connect(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return res
			}
			switch {
			case isExpired(err):
				s.resync(ctx, &res)
			case isAuthError(err):
				res.Err = fmt.Errorf("session start failed for %s: %w", s.handler.Kind(), err)
				s.log.Error().Err(err).Msg("invalid credentials, session stopped")
				return res
			default:
				s.fail(ctx, &res, fmt.Errorf("failed to open watch: %w", err))
			}
			continue
		}

		err = s.stream(ctx, w, &res)
		w.Stop()
		switch {
		case err == nil:
			// Draining: the bounded subscription ended on its own.
			// Reconnect immediately with the latest token.
			s.recover()
		case errors.Is(err, errExpired):
			s.resync(ctx, &res)
		case ctx.Err() != nil:
			return res
		default:
			s.fail(ctx, &res, err)
		}
	}
}

func (s *Session) connect(ctx context.Context, token string) (k8swatch.Interface, error) {
	timeout := int64(s.cfg.SessionTimeout / time.Second)
	opts := metav1.ListOptions{TimeoutSeconds: &timeout}
	if token != "" {
		opts.ResourceVersion = token
		s.log.Debug().Str("token", token).Msg("resuming watch")
	} else {
		s.log.Debug().Msg("starting watch from current state")
	}
	return s.handler.Watch(ctx, s.client, opts)
}

// stream consumes one subscription until it drains, errors, or the
// context ends. A nil return means the stream drained normally.
func (s *Session) stream(ctx context.Context, w k8swatch.Interface, res *Result) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.ResultChan():
			if !ok {
				return nil
			}
			switch ev.Type {
			case k8swatch.Error:
				status := apierrors.FromObject(ev.Object)
				if isExpired(status) {
					return errExpired
				}
				return fmt.Errorf("watch stream error: %w", status)
			case k8swatch.Bookmark:
				// Not requested; ignore if the server sends one.
			case k8swatch.Added, k8swatch.Modified, k8swatch.Deleted:
				if err := s.process(ctx, ev, res); err != nil {
					return err
				}
			}
		}
	}
}

// process runs one observation through the pipeline. Order matters:
// cache update, significance decision, sink write, and only then the
// checkpoint advance. A failure before the advance leaves the token
// pointing at the previous observation, so nothing is silently lost.
func (s *Session) process(ctx context.Context, ev k8swatch.Event, res *Result) error {
	accessor, err := meta.Accessor(ev.Object)
	if err != nil {
		s.log.Warn().Err(err).Msg("observation without readable metadata, skipped")
		return nil
	}

	res.Observed++
	metrics.ObservationsTotal.WithLabelValues(string(s.handler.Kind())).Inc()

	token := accessor.GetResourceVersion()
	transition := transitions[ev.Type]

	if s.handler.Skip(ev.Object) || !s.conn.WatchesNamespace(accessor.GetNamespace()) {
		return s.advance(ctx, token)
	}

	id := types.ResourceIdentity{
		Cluster:   s.conn.Cluster,
		Namespace: accessor.GetNamespace(),
		Kind:      string(s.handler.Kind()),
		Name:      accessor.GetName(),
	}

	prev, _ := s.cache.Get(id)
	next := s.handler.Reduce(ev.Object)
	if transition == types.TransitionDeleted {
		s.cache.Delete(id)
	} else if next != nil {
		s.cache.Put(id, next)
	}

	if filter.Significant(s.handler, transition, next, prev) {
		event, err := normalize.Event(s.conn, s.handler, transition, ev.Object)
		if err != nil {
			return fmt.Errorf("failed to normalize observation: %w", err)
		}
		if err := s.sink.Write(ctx, event); err != nil {
			// The checkpoint stays put; this observation will be
			// redelivered on resume and the sink's idempotent insert
			// absorbs any duplicate that did land.
			return fmt.Errorf("sink write failed: %w", err)
		}
		res.Emitted++
		metrics.EventsEmittedTotal.WithLabelValues(string(s.handler.Kind())).Inc()
		s.log.Info().
			Str("namespace", id.Namespace).
			Str("name", id.Name).
			Str("transition", string(transition)).
			Msg("change event stored")
	}

	return s.advance(ctx, token)
}

func (s *Session) advance(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.checkpoints.Set(ctx, s.conn.ID, string(s.handler.Kind()), token); err != nil {
		return fmt.Errorf("failed to persist checkpoint: %w", err)
	}
	return nil
}

// resync clears the checkpoint so the next subscription starts from
// current state, redelivering every live object once.
func (s *Session) resync(ctx context.Context, res *Result) {
	res.Resyncs++
	metrics.ResyncsTotal.WithLabelValues(string(s.handler.Kind())).Inc()
	s.log.Warn().Msg("continuation token expired, resyncing from current state")
	if err := s.checkpoints.Clear(ctx, s.conn.ID, string(s.handler.Kind())); err != nil {
		s.fail(ctx, res, fmt.Errorf("failed to clear checkpoint: %w", err))
	}
}

// fail records a transient failure and sleeps the current backoff,
// doubling it up to the cap. The checkpoint is untouched.
func (s *Session) fail(ctx context.Context, res *Result, err error) {
	res.Failures++
	s.consecutiveFailures++
	metrics.WatchFailuresTotal.WithLabelValues(string(s.handler.Kind())).Inc()
	s.log.Error().Err(err).Int("consecutive", s.consecutiveFailures).Msg("watch session failure")

	if s.consecutiveFailures >= s.cfg.DegradedThreshold && !s.degraded {
		s.degraded = true
		res.Degraded = true
		metrics.SessionsDegraded.WithLabelValues(string(s.handler.Kind())).Set(1)
		s.log.Warn().Msg("session degraded, continuing with backoff")
	}

	select {
	case <-ctx.Done():
	case <-time.After(s.backoff):
	}
	s.backoff *= 2
	if s.backoff > s.cfg.MaxBackoff {
		s.backoff = s.cfg.MaxBackoff
	}
}

// recover resets the failure accounting after a healthy stream.
func (s *Session) recover() {
	s.consecutiveFailures = 0
	s.backoff = s.cfg.InitialBackoff
	s.clearDegraded()
}

func (s *Session) clearDegraded() {
	if s.degraded {
		s.degraded = false
		metrics.SessionsDegraded.WithLabelValues(string(s.handler.Kind())).Set(0)
	}
}

func isExpired(err error) bool {
	return apierrors.IsResourceExpired(err) || apierrors.IsGone(err)
}

func isAuthError(err error) bool {
	return apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err)
}
