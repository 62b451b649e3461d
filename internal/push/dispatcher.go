package push

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/metrics"
	"github.com/aitoolsdaily/collector/internal/models"
)

const defaultPushBatchSize = 10

// Notification is what subscribers are told about. Delivery is
// signature-only: the service worker fetches today's digest itself, so the
// notification content travels in the run record and logs, not on the wire.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Summary reports one push run's per-subscription outcomes.
type Summary struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Expired int `json:"expired"`
	Total   int `json:"total"`
}

// SubscriptionStore is the slice of the subscription repository the
// dispatcher needs.
type SubscriptionStore interface {
	ListActive(ctx context.Context) ([]models.Subscription, error)
	Deactivate(ctx context.Context, ids []uuid.UUID) error
}

// RunStore records the push run summary.
type RunStore interface {
	Append(ctx context.Context, source, status string, toolsFound, toolsSaved int, details any) error
}

// Dispatcher sends one notification to every active subscription. Endpoints
// that report 404 or 410 are deactivated in a single batch afterwards.
type Dispatcher struct {
	subs      SubscriptionStore
	runs      RunStore
	keys      *vapidKeyPair
	subject   string
	batchSize int
	client    *http.Client
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// NewDispatcher creates a Dispatcher from config. It fails when the VAPID
// keys are missing or malformed; push cannot run unauthenticated.
func NewDispatcher(
	cfg config.PushConfig,
	subs SubscriptionStore,
	runs RunStore,
	m *metrics.Metrics,
	log logger.Logger,
) (*Dispatcher, error) {
	keys, err := decodeVAPIDKeys(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("vapid keys: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultPushBatchSize
	}

	return &Dispatcher{
		subs:      subs,
		runs:      runs,
		keys:      keys,
		subject:   cfg.Subject,
		batchSize: batchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
		metrics:   m,
		logger:    log,
	}, nil
}

// Send delivers the notification to all active subscriptions in parallel
// batches. Individual delivery failures never abort the run; the summary is
// recorded as its own run row.
func (d *Dispatcher) Send(ctx context.Context, n Notification) (Summary, error) {
	subs, err := d.subs.ListActive(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list subscriptions: %w", err)
	}

	summary := Summary{Total: len(subs)}
	if len(subs) == 0 {
		d.logger.Info("No active subscriptions, skipping push")
		return summary, d.recordRun(ctx, summary)
	}

	outcomes := make([]deliveryOutcome, len(subs))
	for offset := 0; offset < len(subs); offset += d.batchSize {
		end := offset + d.batchSize
		if end > len(subs) {
			end = len(subs)
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = d.deliver(ctx, subs[i])
			}(i)
		}
		wg.Wait()
	}

	var expired []uuid.UUID
	for i, outcome := range outcomes {
		switch outcome {
		case deliverySent:
			summary.Sent++
		case deliveryExpired:
			summary.Expired++
			expired = append(expired, subs[i].ID)
		default:
			summary.Failed++
		}
	}

	if len(expired) > 0 {
		if err := d.subs.Deactivate(ctx, expired); err != nil {
			d.logger.Error("Failed to deactivate expired subscriptions",
				logger.Int("count", len(expired)),
				logger.Error(err),
			)
		}
	}

	d.metrics.PushOutcomes(summary.Sent, summary.Failed, summary.Expired)
	d.logger.Info("Push run complete",
		logger.String("title", n.Title),
		logger.Int("sent", summary.Sent),
		logger.Int("failed", summary.Failed),
		logger.Int("expired", summary.Expired),
		logger.Int("total", summary.Total),
	)

	return summary, d.recordRun(ctx, summary)
}

type deliveryOutcome int

const (
	deliveryFailed deliveryOutcome = iota
	deliverySent
	deliveryExpired
)

// deliver posts one payloadless push message. A 404 or 410 means the
// browser dropped the subscription.
func (d *Dispatcher) deliver(ctx context.Context, sub models.Subscription) deliveryOutcome {
	auth, err := d.keys.authorizationHeader(sub.Endpoint, d.subject, time.Now())
	if err != nil {
		d.logger.Warn("Push authorization failed",
			logger.String("endpoint", sub.Endpoint),
			logger.Error(err),
		)
		return deliveryFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, http.NoBody)
	if err != nil {
		return deliveryFailed
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("Content-Length", "0")
	req.Header.Set("TTL", "86400")
	req.Header.Set("Urgency", "normal")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("Push delivery failed",
			logger.String("endpoint", sub.Endpoint),
			logger.Error(err),
		)
		return deliveryFailed
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return deliverySent
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return deliveryExpired
	default:
		d.logger.Warn("Push endpoint rejected delivery",
			logger.String("endpoint", sub.Endpoint),
			logger.Int("status", resp.StatusCode),
		)
		return deliveryFailed
	}
}

func (d *Dispatcher) recordRun(ctx context.Context, summary Summary) error {
	status := models.RunStatusSuccess
	if summary.Failed > 0 {
		status = models.RunStatusPartial
	}
	if summary.Total > 0 && summary.Sent == 0 && summary.Failed > 0 {
		status = models.RunStatusFailed
	}

	if err := d.runs.Append(ctx, models.RunSourcePush, status, summary.Total, summary.Sent, summary); err != nil {
		return fmt.Errorf("record push run: %w", err)
	}
	return nil
}
