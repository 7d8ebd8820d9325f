package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/diwise/osm-topology/internal/pkg/application/topology"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// Notifier posts a notification to a subscriber endpoint each time an area
// has been refreshed. Notifications are delivered in order by a single worker.
type Notifier interface {
	Start() error
	Stop() error

	AreaRefreshed(ctx context.Context, s topology.Snapshot)
}

var tracer = otel.Tracer("osm-topology/notifier")

type action func()

type notifier struct {
	// mu guards started and every send on queue
	mu       sync.Mutex
	started  bool
	endpoint string

	httpClient http.Client
	queue      chan action
}

func NewNotifier(ctx context.Context, endpoint string) (Notifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("a notification endpoint is required")
	}

	return &notifier{
		endpoint: endpoint,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}, nil
}

func (n *notifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return fmt.Errorf("already started")
	}

	n.started = true
	n.queue = make(chan action, 32)

	go n.run(n.queue)

	return nil
}

func (n *notifier) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		resultChan := make(chan bool)

		n.queue <- func() {
			// close the queue to signal the consumers that we are going out of business
			close(n.queue)
			resultChan <- true
		}

		<-resultChan
		n.started = false
	}
	return nil
}

func (n *notifier) AreaRefreshed(ctx context.Context, s topology.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.started {
		return
	}

	var err error

	logger := logging.GetFromContext(ctx)

	// the notification outlives the request or refresh that triggered it
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "post-notification")

	notification := NewNotification(s)

	n.queue <- func() {
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		err = n.post(ctx, notification)
		if err != nil {
			logger.Error("failed to post notification", "area", s.AreaID, "err", err.Error())
		}
	}
}

func (n *notifier) post(ctx context.Context, notification *Notification) error {
	body, err := json.MarshalIndent(notification, "", " ")
	if err != nil {
		return fmt.Errorf("marshalling error (%w)", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("unable to create new request (%w)", err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request (%w)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("subscriber responded with status code %d", resp.StatusCode)
	}

	return nil
}

func (n *notifier) run(queue chan action) {
	// repeat until the queue is closed
	for action := range queue {
		if action == nil {
			return
		}

		action()
	}
}

type Notification struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	NotifiedAt string         `json:"notifiedAt"`
	Data       []AreaRevision `json:"data"`
}

type AreaRevision struct {
	AreaID    string `json:"areaId"`
	Revision  string `json:"revision"`
	FetchedAt string `json:"fetchedAt"`
	Points    int    `json:"points"`
	Paths     int    `json:"paths"`
}

func NewNotification(s topology.Snapshot) *Notification {
	revision := AreaRevision{
		AreaID:    s.AreaID,
		Revision:  s.Revision,
		FetchedAt: s.FetchedAt.UTC().Format(time.RFC3339Nano),
	}

	if s.Document != nil {
		revision.Points = len(s.Document.Points)
		revision.Paths = len(s.Document.Paths)
	}

	return &Notification{
		ID:         fmt.Sprintf("urn:osm-topology:Notification:%s", uuid.New().String()),
		Type:       "Notification",
		NotifiedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Data:       []AreaRevision{revision},
	}
}
