// Package poller keeps each live session's page list current by
// querying its debugging endpoints' target-list resource on a fixed
// cadence.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/nwlens/nwlens/internal/domain/store"
	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/infrastructure/monitoring"
	"github.com/nwlens/nwlens/internal/shared/types"
	"go.uber.org/zap"
)

// targetListPath is the well-known DevTools target enumeration resource
const targetListPath = "/json/list"

// Poller fetches and merges target lists for live sessions
type Poller struct {
	client   *resty.Client
	store    *store.Store
	interval time.Duration
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	inflight sync.Map // instanceID -> struct{}, guards overlapping ticks
}

// New creates a poller publishing into the given store
func New(st *store.Store, interval, timeout time.Duration, logger *logging.Logger) *Poller {
	if logger == nil {
		logger = logging.NewDefault()
	}

	// Endpoints come up slightly after the process banner; a couple of
	// quick retries smooth over that window without stalling the tick.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 400 * time.Millisecond
	retryClient.Logger = nil

	client := resty.New().
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient}).
		SetTimeout(timeout)

	return &Poller{
		client:   client,
		store:    st,
		interval: interval,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the poller
func (p *Poller) WithMetrics(metrics *monitoring.Metrics) *Poller {
	p.metrics = metrics
	return p
}

// PollOnce queries both of a session's endpoints and merges their
// target lists: node targets first, window targets appended, keyed by
// each target's own id (last write wins).
func (p *Poller) PollOnce(ctx context.Context, session types.Session) map[string]types.PageInfo {
	merged := make(map[string]types.PageInfo)

	for _, port := range []int{session.NodePort, session.WindowPort} {
		targets, err := p.fetchTargets(ctx, port)
		if err != nil {
			// Transport failures are expected while the endpoint comes
			// up and never close a session.
			if p.metrics != nil {
				p.metrics.PollErrors.Inc()
			}
			p.logger.Debug("Target list fetch failed",
				zap.String("instance_id", session.InstanceID),
				zap.Int("port", port),
				zap.Error(err),
			)
			continue
		}
		for _, t := range targets {
			merged[t.ID] = t
		}
	}

	if p.metrics != nil {
		p.metrics.PollsTotal.Inc()
	}
	return merged
}

// fetchTargets GETs one endpoint's target list and decodes the JSON
// array of descriptors, passing fields through opaquely.
func (p *Poller) fetchTargets(ctx context.Context, port int) ([]types.PageInfo, error) {
	url := fmt.Sprintf("http://127.0.0.1:%d%s", port, targetListPath)

	resp, err := p.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("target list returned status %d", resp.StatusCode())
	}

	var raw []map[string]interface{}
	if err := sonic.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode target list: %w", err)
	}

	pages := make([]types.PageInfo, 0, len(raw))
	for _, descriptor := range raw {
		id, _ := descriptor["id"].(string)
		if id == "" {
			continue
		}
		pages = append(pages, types.PageInfo{ID: id, Descriptor: descriptor})
	}
	return pages, nil
}

// Refresh polls one session immediately and publishes the result.
// Used for the readiness one-shot; shares the overlap guard with the
// periodic loop.
func (p *Poller) Refresh(ctx context.Context, instanceID string) {
	session, ok := p.store.Session(instanceID)
	if !ok || !session.Live() {
		return
	}
	p.pollSession(ctx, session)
}

// Run republishes pages for every live session until ctx is cancelled.
// Ticks never overlap for the same session: a poll still in flight when
// the next tick fires is skipped rather than stacked.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, session := range p.store.LiveSessions() {
				go p.pollSession(ctx, session)
			}
		}
	}
}

func (p *Poller) pollSession(ctx context.Context, session types.Session) {
	if _, busy := p.inflight.LoadOrStore(session.InstanceID, struct{}{}); busy {
		return
	}
	defer p.inflight.Delete(session.InstanceID)

	pages := p.PollOnce(ctx, session)
	p.store.UpsertSessionPages(session.InstanceID, pages)
}
