package watch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"k8s.io/client-go/kubernetes"

	"github.com/rootline/clusterwatch/internal/checkpoint"
	"github.com/rootline/clusterwatch/internal/kinds"
	"github.com/rootline/clusterwatch/internal/sink"
	"github.com/rootline/clusterwatch/internal/statecache"
	"github.com/rootline/clusterwatch/internal/types"
)

// Coordinator fans one sync cycle out to one session per configured
// resource kind and joins them all before returning. It holds no
// cross-kind state; the cache, checkpoint store and sink it passes
// down are safe for concurrent use.
type Coordinator struct {
	conn        types.ClusterConnection
	handlers    []kinds.Handler
	client      kubernetes.Interface
	cache       *statecache.Cache
	checkpoints checkpoint.Store
	sink        sink.Sink
	cfg         SessionConfig
	log         zerolog.Logger
}

func NewCoordinator(
	conn types.ClusterConnection,
	handlers []kinds.Handler,
	client kubernetes.Interface,
	cache *statecache.Cache,
	checkpoints checkpoint.Store,
	eventSink sink.Sink,
	cfg SessionConfig,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		conn:        conn,
		handlers:    handlers,
		client:      client,
		cache:       cache,
		checkpoints: checkpoints,
		sink:        eventSink,
		cfg:         cfg,
		log:         log,
	}
}

// Sync runs every session concurrently for the duration of ctx and
// returns their per-kind results once all have terminated. A session
// failing never blocks or cancels its siblings; the caller decides
// what a degraded cycle means.
func (c *Coordinator) Sync(ctx context.Context) []Result {
	results := make([]Result, len(c.handlers))

	var wg sync.WaitGroup
	for i, h := range c.handlers {
		wg.Add(1)
		go func(i int, h kinds.Handler) {
			defer wg.Done()
			session := NewSession(c.conn, h, c.client, c.cache, c.checkpoints, c.sink, c.cfg, c.log)
			results[i] = session.Run(ctx)
		}(i, h)
	}
	wg.Wait()

	for _, res := range results {
		evt := c.log.Info()
		if res.Err != nil {
			evt = c.log.Error().Err(res.Err)
		}
		evt.Str("kind", string(res.Kind)).
			Int("observed", res.Observed).
			Int("emitted", res.Emitted).
			Int("resyncs", res.Resyncs).
			Int("failures", res.Failures).
			Bool("degraded", res.Degraded).
			Msg("session finished")
	}

	return results
}
