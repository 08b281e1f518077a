// Package workerpool выполняет набор задач с ограниченным параллелизмом.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pr-review-engine/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// ErrCancelled возвращается, если выполнение было отменено через Cancel.
var ErrCancelled = errors.New("worker pool cancelled")

// Task: единица работы. Живёт только в рамках одного вызова Execute.
type Task[I, O any] struct {
	ID      string
	Data    I
	Execute func(ctx context.Context, data I) (O, error)
}

// TaskError фиксирует сбой отдельной задачи.
type TaskError struct {
	TaskID string
	Err    error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.TaskID, e.Err)
}

func (e TaskError) Unwrap() error { return e.Err }

// Config настраивает пул.
type Config struct {
	MaxWorkers int
	// ContinueOnError=false прерывает пакет при первом сбое.
	ContinueOnError bool
	// OnProgress вызывается один раз на каждое завершение задачи под внутренней блокировкой,
	// поэтому не должен обращаться к методам пула.
	OnProgress func(completed, total int)
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{MaxWorkers: 4, ContinueOnError: true}
}

// Stats: счётчики последнего вызова Execute.
type Stats struct {
	Total     int
	Completed int
	Failed    int
	Active    int
	Queued    int
	Cancelled bool
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// Pool выполняет задачи с не более чем MaxWorkers одновременно.
type Pool[I, O any] struct {
	cfg Config

	mu        sync.Mutex
	results   map[string]O
	errs      []TaskError
	stats     Stats
	settled   int
	cancelled bool
}

// New создаёт пул.
func New[I, O any](cfg Config) *Pool[I, O] {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	return &Pool[I, O]{cfg: cfg}
}

// Execute запускает задачи и возвращает результаты завершившихся успешно, по ID.
// Освободившийся слот сразу занимается следующей задачей из очереди.
func (p *Pool[I, O]) Execute(ctx context.Context, tasks []Task[I, O]) (map[string]O, error) {
	p.mu.Lock()
	p.results = make(map[string]O, len(tasks))
	p.errs = nil
	p.settled = 0
	p.cancelled = false
	p.stats = Stats{
		Total:     len(tasks),
		Queued:    len(tasks),
		StartedAt: time.Now(),
	}
	p.mu.Unlock()

	workers := min(p.cfg.MaxWorkers, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, task := range tasks {
		if p.shouldStop(gctx) {
			break
		}
		// Go блокируется, пока не освободится слот.
		g.Go(func() error {
			if !p.start(gctx) {
				return nil
			}
			return p.run(gctx, task)
		})
	}

	runErr := g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.EndedAt = time.Now()
	p.stats.Duration = p.stats.EndedAt.Sub(p.stats.StartedAt)
	p.stats.Cancelled = p.cancelled

	results := make(map[string]O, len(p.results))
	for id, out := range p.results {
		results[id] = out
	}

	if runErr != nil {
		return results, fmt.Errorf("worker pool aborted: %w", runErr)
	}
	if p.cancelled {
		return results, ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// shouldStop сообщает, нужно ли прекратить раздачу задач.
func (p *Pool[I, O]) shouldStop(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled || ctx.Err() != nil
}

// start переводит задачу из очереди в активные, если пул не остановлен.
func (p *Pool[I, O]) start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || ctx.Err() != nil {
		return false
	}
	p.stats.Queued--
	p.stats.Active++
	return true
}

func (p *Pool[I, O]) run(ctx context.Context, task Task[I, O]) error {
	out, err := p.invoke(ctx, task)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Active--
	p.settled++
	if err != nil {
		p.stats.Failed++
		p.errs = append(p.errs, TaskError{TaskID: task.ID, Err: err})
		metrics.TasksSettled.WithLabelValues("failed").Inc()
	} else {
		p.stats.Completed++
		p.results[task.ID] = out
		metrics.TasksSettled.WithLabelValues("completed").Inc()
	}
	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(p.settled, p.stats.Total)
	}

	if err != nil && !p.cfg.ContinueOnError {
		return TaskError{TaskID: task.ID, Err: err}
	}
	return nil
}

// invoke изолирует панику задачи как её ошибку.
func (p *Pool[I, O]) invoke(ctx context.Context, task Task[I, O]) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Execute(ctx, task.Data)
}

// Cancel прекращает запуск ещё не начатых задач. Выполняющиеся задачи доработают до конца.
func (p *Pool[I, O]) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = true
}

// Errors возвращает сбои последнего вызова Execute в порядке завершения.
func (p *Pool[I, O]) Errors() []TaskError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]TaskError(nil), p.errs...)
}

// Stats возвращает снимок счётчиков.
func (p *Pool[I, O]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
