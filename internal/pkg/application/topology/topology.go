package topology

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diwise/osm-topology/pkg/client"
	"github.com/diwise/osm-topology/pkg/osm"
	"github.com/diwise/osm-topology/pkg/osm/geojson"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrUnknownArea = errors.New("unknown area")
var ErrNotLoaded = errors.New("area not loaded")

//go:generate moq -rm -out topology_mock.go . TopologyManager

type TopologyManager interface {
	Areas() []Area
	Style() geojson.Style
	Refresh(ctx context.Context, areaID string) (*Snapshot, error)
	Snapshot(ctx context.Context, areaID string) (*Snapshot, error)
	Run(ctx context.Context) error
}

// Snapshot is the most recently loaded map extract for an area. A snapshot is
// replaced as a whole when a newer extract has been fetched and parsed.
type Snapshot struct {
	AreaID    string
	Revision  string
	FetchedAt time.Time
	Document  *osm.Document
}

// Extract is the raw text a snapshot was parsed from.
type Extract struct {
	AreaID    string
	Revision  string
	FetchedAt time.Time
	Body      []byte
}

type Fetcher interface {
	FetchMap(ctx context.Context, bbox client.BBox) ([]byte, error)
}

type SnapshotStore interface {
	Save(ctx context.Context, extract Extract) error
	Load(ctx context.Context, areaID string) (*Extract, error)
}

// RefreshNotifier is told about every snapshot that replaces the previous
// one for an area.
type RefreshNotifier interface {
	AreaRefreshed(ctx context.Context, s Snapshot)
}

type Option func(*topologyApp)

func WithSnapshotStore(store SnapshotStore) Option {
	return func(app *topologyApp) {
		app.store = store
	}
}

func WithRefreshNotifier(notifier RefreshNotifier) Option {
	return func(app *topologyApp) {
		app.notifier = notifier
	}
}

func WithClock(now func() time.Time) Option {
	return func(app *topologyApp) {
		app.now = now
	}
}

const TraceAttributeAreaID string = "area-id"

var tracer = otel.Tracer("osm-topology/topology")

type topologyApp struct {
	cfg      Config
	fetcher  Fetcher
	store    SnapshotStore
	notifier RefreshNotifier
	now      func() time.Time

	mu        sync.RWMutex
	snapshots map[string]*Snapshot

	// refreshes of the same area never overlap
	refreshing map[string]*sync.Mutex
}

func New(ctx context.Context, cfg Config, fetcher Fetcher, options ...Option) (TopologyManager, error) {
	app := &topologyApp{
		cfg:       cfg,
		fetcher:   fetcher,
		now:       time.Now,
		snapshots: make(map[string]*Snapshot, len(cfg.Areas)),

		refreshing: make(map[string]*sync.Mutex, len(cfg.Areas)),
	}

	for _, area := range cfg.Areas {
		app.refreshing[area.ID] = &sync.Mutex{}
	}

	for _, option := range options {
		option(app)
	}

	if app.store != nil {
		app.seedFromStore(ctx)
	}

	return app, nil
}

func (app *topologyApp) seedFromStore(ctx context.Context) {
	log := logging.GetFromContext(ctx)

	for _, area := range app.cfg.Areas {
		extract, err := app.store.Load(ctx, area.ID)
		if err != nil {
			log.Info("no stored extract available", "area", area.ID, "err", err.Error())
			continue
		}

		doc, err := osm.Parse(bytes.NewReader(extract.Body))
		if err != nil {
			log.Warn("ignoring stored extract that could not be parsed", "area", area.ID, "err", err.Error())
			continue
		}

		app.snapshots[area.ID] = &Snapshot{
			AreaID:    area.ID,
			Revision:  extract.Revision,
			FetchedAt: extract.FetchedAt,
			Document:  doc,
		}

		log.Info("loaded stored extract", "area", area.ID, "revision", extract.Revision,
			"points", len(doc.Points), "paths", len(doc.Paths))
	}
}

func (app *topologyApp) Areas() []Area {
	return app.cfg.Areas
}

func (app *topologyApp) Style() geojson.Style {
	return app.cfg.Style
}

// Refresh fetches and parses a new extract for the area. The current snapshot
// is only replaced if both steps succeed.
func (app *topologyApp) Refresh(ctx context.Context, areaID string) (*Snapshot, error) {
	var err error

	ctx, span := tracer.Start(ctx, "refresh-area",
		trace.WithAttributes(attribute.String(TraceAttributeAreaID, areaID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	area, ok := app.cfg.Area(areaID)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownArea, areaID)
		return nil, err
	}

	lock := app.refreshing[areaID]
	lock.Lock()
	defer lock.Unlock()

	log := logging.GetFromContext(ctx).With("area", areaID)

	body, err := app.fetcher.FetchMap(ctx, area.BBox)
	if err != nil {
		log.Error("fetching map data failed", "err", err.Error())
		return nil, err
	}

	doc, err := osm.Parse(bytes.NewReader(body))
	if err != nil {
		log.Error("unable to parse map data", "err", err.Error())
		return nil, err
	}

	snapshot := &Snapshot{
		AreaID:    areaID,
		Revision:  uuid.New().String(),
		FetchedAt: app.now().UTC(),
		Document:  doc,
	}

	if app.store != nil {
		saveErr := app.store.Save(ctx, Extract{
			AreaID:    areaID,
			Revision:  snapshot.Revision,
			FetchedAt: snapshot.FetchedAt,
			Body:      body,
		})
		if saveErr != nil {
			log.Warn("failed to store extract", "err", saveErr.Error())
		}
	}

	app.mu.Lock()
	app.snapshots[areaID] = snapshot
	app.mu.Unlock()

	log.Info("area refreshed", "revision", snapshot.Revision, "points", len(doc.Points), "paths", len(doc.Paths))

	if app.notifier != nil {
		app.notifier.AreaRefreshed(ctx, *snapshot)
	}

	return snapshot, nil
}

func (app *topologyApp) Snapshot(ctx context.Context, areaID string) (*Snapshot, error) {
	if _, ok := app.cfg.Area(areaID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArea, areaID)
	}

	app.mu.RLock()
	defer app.mu.RUnlock()

	snapshot, ok := app.snapshots[areaID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, areaID)
	}

	return snapshot, nil
}

// Run refreshes every area once and then keeps refreshing each area at its
// configured interval until ctx is cancelled.
func (app *topologyApp) Run(ctx context.Context) error {
	wg := sync.WaitGroup{}

	for _, area := range app.cfg.Areas {
		wg.Add(1)
		go func(area Area) {
			defer wg.Done()
			app.refreshPeriodically(ctx, area)
		}(area)
	}

	wg.Wait()

	return nil
}

func (app *topologyApp) refreshPeriodically(ctx context.Context, area Area) {
	app.Refresh(ctx, area.ID)

	if area.RefreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(area.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.Refresh(ctx, area.ID)
		}
	}
}
