package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"pr-review-engine/internal/domain"
	"pr-review-engine/internal/metrics"

	"github.com/sirupsen/logrus"
)

const (
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"

	// maxThrottleMultiplier ограничивает рост линейной задержки под мягким порогом.
	maxThrottleMultiplier = 10
	maxBackoffExponent    = 10
)

var errTransportClosed = errors.New("rate limited transport closed")

// RateLimitConfig задаёт пороги квоты и задержки.
type RateLimitConfig struct {
	SoftFloor int
	HardFloor int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// MaxResetWait ограничивает ожидание сброса квоты. Если сброс дальше, запрос
	// завершается ошибкой domain.ErrRateLimitExhausted. 0 => ждать без ограничения.
	MaxResetWait time.Duration
}

// DefaultRateLimitConfig возвращает значения по умолчанию.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		SoftFloor:    10,
		HardFloor:    2,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		MaxResetWait: 5 * time.Minute,
	}
}

// RateLimitState: последнее известное состояние квоты.
type RateLimitState struct {
	Remaining int
	ResetAt   time.Time
	// Known=false до первого ответа с заголовками квоты.
	Known bool
}

type roundTripResult struct {
	resp *http.Response
	err  error
}

type queuedRequest struct {
	req    *http.Request
	result chan roundTripResult
}

// rateLimitedTransport пропускает все запросы через одну FIFO-очередь и обрабатывает их
// по одному, чтобы учёт квоты оставался детерминированным.
type rateLimitedTransport struct {
	base   http.RoundTripper
	cfg    RateLimitConfig
	logger *logrus.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	// timeout ограничивает сетевой обмен одного запроса без учёта очереди и троттлинга.
	timeout time.Duration

	queue     chan *queuedRequest
	done      chan struct{}
	closeOnce sync.Once

	mu                   sync.Mutex
	state                RateLimitState
	consecutiveThrottled int
}

func newRateLimitedTransport(base http.RoundTripper, cfg RateLimitConfig, timeout time.Duration, logger *logrus.Logger, now func() time.Time, sleep func(context.Context, time.Duration) error) *rateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &rateLimitedTransport{
		base:    base,
		cfg:     cfg,
		logger:  logger,
		now:     now,
		sleep:   sleep,
		timeout: timeout,
		queue:   make(chan *queuedRequest, 64),
		done:    make(chan struct{}),
	}
	go t.loop()
	return t
}

// RoundTrip ставит запрос в очередь и ждёт его обработки.
func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	qr := &queuedRequest{req: req, result: make(chan roundTripResult, 1)}

	select {
	case t.queue <- qr:
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case <-t.done:
		return nil, errTransportClosed
	}

	select {
	case res := <-qr.result:
		return res.resp, res.err
	case <-t.done:
		return nil, errTransportClosed
	}
}

func (t *rateLimitedTransport) loop() {
	for {
		select {
		case qr := <-t.queue:
			resp, err := t.dispatch(qr.req)
			qr.result <- roundTripResult{resp: resp, err: err}
		case <-t.done:
			return
		}
	}
}

func (t *rateLimitedTransport) close() {
	t.closeOnce.Do(func() { close(t.done) })
}

func (t *rateLimitedTransport) dispatch(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.throttle(ctx); err != nil {
		return nil, err
	}

	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}
	t.observe(req, resp)

	if resp.StatusCode != http.StatusForbidden || !t.underSoftFloor() || !replayable(req) {
		return resp, nil
	}

	delay := t.retryDelay()
	t.logger.WithFields(logrus.Fields{
		"url":   req.URL.Path,
		"delay": delay,
	}).Warn("Forbidden under low quota, retrying once")

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := t.sleep(ctx, delay); err != nil {
		return nil, err
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err = t.send(retry)
	if err != nil {
		return nil, err
	}
	t.observe(retry, resp)
	return resp, nil
}

// send выполняет сетевой обмен с ограничением по времени. Таймаут действует до закрытия тела ответа.
func (t *rateLimitedTransport) send(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.base.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// throttle применяет ожидание перед отправкой в зависимости от остатка квоты.
func (t *rateLimitedTransport) throttle(ctx context.Context) error {
	t.mu.Lock()
	state := t.state
	now := t.now()
	var wait time.Duration
	reason := ""

	switch {
	case state.Known && state.Remaining <= t.cfg.HardFloor && state.ResetAt.After(now):
		wait = state.ResetAt.Sub(now)
		if t.cfg.MaxResetWait > 0 && wait > t.cfg.MaxResetWait {
			t.mu.Unlock()
			return fmt.Errorf("%w: reset in %s exceeds max wait %s", domain.ErrRateLimitExhausted, wait.Round(time.Second), t.cfg.MaxResetWait)
		}
		reason = "hard floor"
	case state.Known && state.Remaining < t.cfg.SoftFloor:
		multiplier := min(t.consecutiveThrottled+1, maxThrottleMultiplier)
		wait = min(t.cfg.BaseDelay*time.Duration(multiplier), t.cfg.MaxDelay)
		t.consecutiveThrottled++
		reason = "soft floor"
	default:
		t.consecutiveThrottled = 0
	}
	t.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	metrics.ThrottleDelay.Observe(wait.Seconds())
	t.logger.WithFields(logrus.Fields{
		"remaining": state.Remaining,
		"reset_at":  state.ResetAt,
		"delay":     wait,
		"reason":    reason,
	}).Info("Throttling outbound request")

	return t.sleep(ctx, wait)
}

func (t *rateLimitedTransport) retryDelay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	exp := min(t.consecutiveThrottled, maxBackoffExponent)
	return min(t.cfg.BaseDelay*time.Duration(1<<exp), t.cfg.MaxDelay)
}

func (t *rateLimitedTransport) underSoftFloor() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Known && t.state.Remaining < t.cfg.SoftFloor
}

// observe обновляет состояние квоты из заголовков ответа.
func (t *rateLimitedTransport) observe(req *http.Request, resp *http.Response) {
	metrics.RemoteRequests.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	remaining, errRemaining := strconv.Atoi(resp.Header.Get(headerRateRemaining))
	reset, errReset := strconv.ParseInt(resp.Header.Get(headerRateReset), 10, 64)

	t.mu.Lock()
	defer t.mu.Unlock()
	if errRemaining == nil {
		t.state.Remaining = remaining
		t.state.Known = true
		metrics.RateLimitRemaining.Set(float64(remaining))
	}
	if errReset == nil {
		t.state.ResetAt = time.Unix(reset, 0)
	}
}

// State возвращает копию текущего состояния квоты.
func (t *rateLimitedTransport) State() RateLimitState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		clone.Body = body
	}
	return clone, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
