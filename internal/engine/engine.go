package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/karpella/ec2console/internal/aws/ec2"
)

// Staleness and scheduling windows.
const (
	collectionTTL   = 30 * time.Second
	statusTTL       = 15 * time.Second
	regionsTTL      = time.Hour
	defaultInterval = 60 * time.Second
	evictAfter      = 5 * time.Minute
)

// Client is the slice of the resource client the engine consumes.
// *ec2.Client satisfies it.
type Client interface {
	ListInstances(ctx context.Context, filters ec2.Filters) ([]ec2.Instance, error)
	DescribeStatuses(ctx context.Context, ids []string) ([]ec2.Status, error)
	PerformAction(ctx context.Context, id string, action ec2.Action, opts ec2.ActionOptions) (ec2.ActionResult, error)
	ListRegions(ctx context.Context) ([]ec2.Region, error)
	TagInstances(ctx context.Context, ids []string, tags map[string]string) error
}

// ClientBuilder constructs a client snapshot for one region against the
// caller's current credentials. Snapshots are immutable once built;
// region switches and credential rotation produce new ones.
type ClientBuilder func(ctx context.Context, region string) (Client, error)

// Options tune an Engine. Zero values get defaults.
type Options struct {
	Interval  time.Duration
	Estimator Estimator
	Logger    logrus.FieldLogger
}

// Engine owns the instance-collection cache: read-through snapshots,
// fetch de-duplication, background revalidation and the mutation
// coordinator.
type Engine struct {
	build    ClientBuilder
	est      Estimator
	log      logrus.FieldLogger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	region  string
	clients map[string]Client

	entries      cmap.ConcurrentMap[string, *collectionEntry]
	flight       singleflight.Group
	clientFlight singleflight.Group

	statuses *ttlCache[[]ec2.Status]

	regionsMu sync.Mutex
	regions   []ec2.Region
	regionsAt time.Time

	subMu sync.Mutex
	subs  []chan Event

	bgMu sync.Mutex
	bg   context.Context

	kickCh chan struct{}
}

func New(build ClientBuilder, region string, opts Options) *Engine {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	est := opts.Estimator
	if est == nil {
		est = DefaultEstimator
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Engine{
		build:    build,
		est:      est,
		log:      log.WithField("component", "engine"),
		interval: interval,
		now:      time.Now,
		region:   region,
		clients:  make(map[string]Client),
		entries:  cmap.New[*collectionEntry](),
		statuses: newTTLCache[[]ec2.Status](statusTTL),
		kickCh:   make(chan struct{}, 1),
	}
}

// Region returns the current default region.
func (e *Engine) Region() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.region
}

// SetRegion switches the default region and pre-builds its client
// snapshot so the first read pays no construction cost.
func (e *Engine) SetRegion(ctx context.Context, region string) error {
	e.mu.Lock()
	e.region = region
	e.mu.Unlock()
	_, err := e.clientFor(ctx, region)
	return err
}

// RotateCredentials drops every client snapshot. The next call per
// region builds a fresh one against the current credentials; calls
// already in flight finish on the snapshot they captured.
func (e *Engine) RotateCredentials() {
	e.mu.Lock()
	e.clients = make(map[string]Client)
	e.mu.Unlock()
	e.log.Debug("client snapshots dropped after credential rotation")
}

func (e *Engine) clientFor(ctx context.Context, region string) (Client, error) {
	e.mu.Lock()
	client := e.clients[region]
	e.mu.Unlock()
	if client != nil {
		return client, nil
	}

	v, err, _ := e.clientFlight.Do(region, func() (interface{}, error) {
		client, err := e.build(ctx, region)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.clients[region] = client
		e.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

func (e *Engine) entry(key Key) *collectionEntry {
	ks := key.String()
	for {
		if entry, ok := e.entries.Get(ks); ok {
			return entry
		}
		e.entries.SetIfAbsent(ks, &collectionEntry{key: key, lastRead: e.now()})
	}
}

// Collection returns the last published snapshot for key immediately
// and schedules a background refresh when the entry is stale or absent.
func (e *Engine) Collection(key Key) Snapshot {
	entry := e.entry(key)
	snap := entry.snapshot(e.now())
	if !snap.Fetching && snap.Stale(e.now()) {
		e.refreshAsync(key, false)
	}
	return snap
}

// Refresh fetches key now regardless of staleness and returns the
// resulting snapshot.
func (e *Engine) Refresh(ctx context.Context, key Key) (Snapshot, error) {
	entry := e.entry(key)
	seq, _ := entry.issueFetch(true)
	fk := "collection|" + key.String()
	e.flight.Forget(fk)
	_, err, _ := e.flight.Do(fk, func() (interface{}, error) {
		return nil, e.fetchInto(ctx, entry, seq)
	})
	return entry.snapshot(e.now()), err
}

// Invalidate marks key stale and refreshes it immediately, superseding
// any fetch already in flight.
func (e *Engine) Invalidate(key Key) {
	entry := e.entry(key)
	entry.mu.Lock()
	entry.fetchedAt = time.Time{}
	entry.mu.Unlock()
	e.refreshAsync(key, true)
}

// refreshAsync schedules a background fetch. Without force it yields to
// a fetch already outstanding for the key.
func (e *Engine) refreshAsync(key Key, force bool) {
	entry := e.entry(key)
	seq, ok := entry.issueFetch(force)
	if !ok {
		return
	}
	fk := "collection|" + key.String()
	if force {
		e.flight.Forget(fk)
	}
	ctx := e.background()
	go func() {
		_, _, _ = e.flight.Do(fk, func() (interface{}, error) {
			return nil, e.fetchInto(ctx, entry, seq)
		})
	}()
}

// issueFetch claims a fetch slot on the entry. ok is false when one is
// already outstanding and the caller did not force.
func (c *collectionEntry) issueFetch(force bool) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetching && !force {
		return 0, false
	}
	c.fetching = true
	c.seq++
	return c.seq, true
}

// fetchInto is the only writer of fetched collection data. A response
// whose seq was superseded is discarded; the newer fetch owns the entry.
func (e *Engine) fetchInto(ctx context.Context, entry *collectionEntry, seq uint64) error {
	client, err := e.clientFor(ctx, entry.key.Region)
	var instances []ec2.Instance
	if err == nil {
		instances, err = withRetry(ctx, func() ([]ec2.Instance, error) {
			return client.ListInstances(ctx, entry.key.Filters)
		})
	}

	entry.mu.Lock()
	if entry.seq != seq {
		entry.mu.Unlock()
		return err
	}
	entry.fetching = false
	if err != nil {
		entry.lastErr = err
		entry.mu.Unlock()
		e.log.WithField("key", entry.key.String()).WithError(err).Warn("collection fetch failed")
		e.publish(Event{Kind: EventCollectionUpdated, Key: entry.key})
		return err
	}

	sortInstances(instances)
	entry.data = instances
	entry.stats = ComputeStats(instances, e.est)
	entry.fetchedAt = e.now()
	entry.lastErr = nil
	entry.mu.Unlock()

	e.publish(Event{Kind: EventCollectionUpdated, Key: entry.key})
	return nil
}

// Binding marks a key as actively read. The background loop refreshes
// only bound keys; an entry with no bindings is evicted once idle.
type Binding struct {
	e    *Engine
	key  Key
	once sync.Once
}

// Bind registers an active reader of key.
func (e *Engine) Bind(key Key) *Binding {
	entry := e.entry(key)
	entry.mu.Lock()
	entry.refs++
	entry.lastRead = e.now()
	entry.mu.Unlock()
	return &Binding{e: e, key: key}
}

// Key returns the bound key.
func (b *Binding) Key() Key { return b.key }

// Close releases the binding. Safe to call more than once.
func (b *Binding) Close() {
	b.once.Do(func() {
		entry := b.e.entry(b.key)
		entry.mu.Lock()
		if entry.refs > 0 {
			entry.refs--
		}
		entry.lastRead = b.e.now()
		entry.mu.Unlock()
	})
}

// Start runs the background loop until ctx is cancelled: one sweep per
// interval, plus immediate sweeps on NotifyFocus/NotifyOnline.
func (e *Engine) Start(ctx context.Context) {
	e.bgMu.Lock()
	e.bg = ctx
	e.bgMu.Unlock()

	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.sweep()
			case <-e.kickCh:
				e.sweep()
			}
		}
	}()
}

func (e *Engine) background() context.Context {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.bg != nil {
		return e.bg
	}
	return context.Background()
}

// NotifyFocus requests an immediate sweep, typically when the console
// window regains focus.
func (e *Engine) NotifyFocus() { e.kick() }

// NotifyOnline requests an immediate sweep after connectivity returns.
func (e *Engine) NotifyOnline() { e.kick() }

func (e *Engine) kick() {
	select {
	case e.kickCh <- struct{}{}:
	default:
	}
}

// sweep refreshes stale entries that have readers and evicts entries
// nobody has read for the grace period.
func (e *Engine) sweep() {
	now := e.now()
	for ks, entry := range e.entries.Items() {
		entry.mu.Lock()
		refs := entry.refs
		fetching := entry.fetching
		stale := entry.fetchedAt.IsZero() || now.Sub(entry.fetchedAt) > collectionTTL
		idle := now.Sub(entry.lastRead)
		key := entry.key
		entry.mu.Unlock()

		switch {
		case refs > 0:
			if stale && !fetching {
				e.refreshAsync(key, false)
			}
		case idle > evictAfter:
			e.entries.Remove(ks)
		}
	}
}

// Statuses returns health checks for the given instances, cached for a
// shorter window than collections.
func (e *Engine) Statuses(ctx context.Context, region string, ids []string) ([]ec2.Status, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	ck := region + "|" + strings.Join(sorted, ",")

	if cached, ok := e.statuses.get(ck, e.now()); ok {
		return cached, nil
	}

	v, err, _ := e.flight.Do("statuses|"+ck, func() (interface{}, error) {
		client, err := e.clientFor(ctx, region)
		if err != nil {
			return nil, err
		}
		statuses, err := withRetry(ctx, func() ([]ec2.Status, error) {
			return client.DescribeStatuses(ctx, sorted)
		})
		if err != nil {
			return nil, err
		}
		e.statuses.put(ck, statuses, e.now())
		return statuses, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ec2.Status), nil
}

// Regions returns the region listing, refreshed at most hourly.
func (e *Engine) Regions(ctx context.Context) ([]ec2.Region, error) {
	e.regionsMu.Lock()
	fresh := !e.regionsAt.IsZero() && e.now().Sub(e.regionsAt) <= regionsTTL
	cached := e.regions
	e.regionsMu.Unlock()
	if fresh {
		return cached, nil
	}

	v, err, _ := e.flight.Do("regions", func() (interface{}, error) {
		client, err := e.clientFor(ctx, e.Region())
		if err != nil {
			return nil, err
		}
		regions, err := withRetry(ctx, func() ([]ec2.Region, error) {
			return client.ListRegions(ctx)
		})
		if err != nil {
			return nil, err
		}
		e.regionsMu.Lock()
		e.regions = regions
		e.regionsAt = e.now()
		e.regionsMu.Unlock()
		e.publish(Event{Kind: EventRegionsRefreshed})
		return regions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ec2.Region), nil
}

// Tag applies tags through the client, then invalidates the collection
// so the next read shows them.
func (e *Engine) Tag(ctx context.Context, key Key, ids []string, tags map[string]string) error {
	client, err := e.clientFor(ctx, key.Region)
	if err != nil {
		return err
	}
	if err := withRetryErr(ctx, func() error {
		return client.TagInstances(ctx, ids, tags)
	}); err != nil {
		return err
	}
	e.Invalidate(key)
	return nil
}
