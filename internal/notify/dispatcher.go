// Package notify は予約イベントを複数の通知先（監査ログ、メッセージキュー）へ配信する。
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/roomsched/internal/model"
)

// Sink は予約イベントの通知先。
type Sink interface {
	Name() string
	Publish(ctx context.Context, event model.AppointmentEvent) error
}

// FailureRecorder は通知失敗を記録するメトリクスのインターフェース。
type FailureRecorder interface {
	RecordEventSinkFailure(sink string)
	RecordEventDropped()
}

// funcSink は関数をSinkとして扱うためのアダプタ。
type funcSink struct {
	name string
	fn   func(ctx context.Context, event model.AppointmentEvent) error
}

func (s funcSink) Name() string { return s.name }

func (s funcSink) Publish(ctx context.Context, event model.AppointmentEvent) error {
	return s.fn(ctx, event)
}

// SinkFunc は関数fnを名前nameのSinkとして返す。
// repository.AppointmentEventRepository.Insert などをそのまま登録できる。
func SinkFunc(name string, fn func(ctx context.Context, event model.AppointmentEvent) error) Sink {
	return funcSink{name: name, fn: fn}
}

// DefaultTimeout は1つの通知先への送信に許す時間。
const DefaultTimeout = 5 * time.Second

// DefaultBufferSize は送信待ちイベントのキュー長。
const DefaultBufferSize = 256

// DefaultDrainTimeout はCloseがキューに残ったイベントの送信を待つ時間の上限。
// 超えた分は送信中のものも含めて打ち切り、破棄として記録する。
const DefaultDrainTimeout = 10 * time.Second

// envelope は送信待ちのイベントと、その発生元リクエストのコンテキスト（キャンセルは引き継がない）。
type envelope struct {
	ctx   context.Context
	event model.AppointmentEvent
}

// Dispatcher は予約イベントを1本のワーカーgoroutineで登録済みの全通知先へ順に送信する。
// RecordAppointmentEventはキューに積むだけでブロックしない。キューが満杯の場合はイベントを破棄する。
// 送信の失敗はログとメトリクスに記録するだけで、呼び出し元へは返さない。
// 通知先への到着順は保証しないため、並びはAppointmentEvent.Sequenceで判断する。
type Dispatcher struct {
	sinks   []Sink
	logger  *slog.Logger
	metrics FailureRecorder
	timeout time.Duration
	drain   time.Duration

	// abortはドレインの期限切れで取り消され、送信中・未送信のイベントを打ち切る
	abort       context.Context
	abortCancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	queue  chan envelope
	done   chan struct{}
}

// NewDispatcher はDefaultBufferSizeのキューを持つDispatcherを生成し、ワーカーを起動する。
// 使い終わったらCloseで停止する。
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	return NewDispatcherWithBuffer(logger, DefaultBufferSize, sinks...)
}

// NewDispatcherWithBuffer はキュー長を指定してDispatcherを生成し、ワーカーを起動する。
func NewDispatcherWithBuffer(logger *slog.Logger, size int, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if size < 1 {
		size = DefaultBufferSize
	}
	abort, abortCancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sinks:       sinks,
		logger:      logger,
		timeout:     DefaultTimeout,
		drain:       DefaultDrainTimeout,
		abort:       abort,
		abortCancel: abortCancel,
		queue:       make(chan envelope, size),
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// SetFailureRecorder は通知失敗を記録するメトリクスを設定する。ワーカーへ送信する前に呼び出す。
func (d *Dispatcher) SetFailureRecorder(r FailureRecorder) {
	d.metrics = r
}

// SinkCount は登録済みの通知先の数を返す。
func (d *Dispatcher) SinkCount() int {
	return len(d.sinks)
}

// RecordAppointmentEvent は予約イベントを送信キューに積む。
// リクエストのキャンセルで監査ログが欠けないよう、呼び出し元のキャンセルは引き継がない。
func (d *Dispatcher) RecordAppointmentEvent(ctx context.Context, event model.AppointmentEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	select {
	case d.queue <- envelope{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		d.drop(event, "queue full")
	}
}

// Close は新しいイベントの受け付けを止め、キューに残ったイベントを送信し終えるまで待つ。
// DefaultDrainTimeoutを過ぎても終わらない場合は残りを打ち切る。複数回呼び出してもよい。
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	timer := time.NewTimer(d.drain)
	defer timer.Stop()

	select {
	case <-d.done:
	case <-timer.C:
		d.logger.Warn("appointment event drain timed out, aborting remaining deliveries",
			slog.Int("pending", len(d.queue)),
		)
		d.abortCancel()
		<-d.done
	}
	d.abortCancel()
	return nil
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for env := range d.queue {
		if d.abort.Err() != nil {
			d.drop(env.event, "drain timed out")
			continue
		}
		d.deliver(env.ctx, env.event)
	}
}

func (d *Dispatcher) drop(event model.AppointmentEvent, reason string) {
	d.logger.Warn("appointment event dropped",
		slog.String("event_id", event.ID),
		slog.Uint64("sequence", event.Sequence),
		slog.String("event_type", string(event.Type)),
		slog.String("reason", reason),
	)
	if d.metrics != nil {
		d.metrics.RecordEventDropped()
	}
}

func (d *Dispatcher) deliver(base context.Context, event model.AppointmentEvent) {
	for _, sink := range d.sinks {
		sctx, cancel := context.WithTimeout(base, d.timeout)
		stop := context.AfterFunc(d.abort, cancel)
		err := sink.Publish(sctx, event)
		stop()
		cancel()

		if err != nil {
			d.logger.Error("failed to deliver appointment event",
				slog.String("sink", sink.Name()),
				slog.String("event_id", event.ID),
				slog.String("event_type", string(event.Type)),
				slog.String("error", err.Error()),
			)
			if d.metrics != nil {
				d.metrics.RecordEventSinkFailure(sink.Name())
			}
			continue
		}

		d.logger.Debug("appointment event delivered",
			slog.String("sink", sink.Name()),
			slog.String("event_id", event.ID),
		)
	}
}
