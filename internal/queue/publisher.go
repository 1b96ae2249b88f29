package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/roomsched/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueueName は予約イベントを送信するキューの既定名。
const DefaultQueueName = "appointment.events"

// DefaultDialTimeout は接続確立（TCP接続とAMQPハンドシェイク）に許す時間の上限。
const DefaultDialTimeout = 5 * time.Second

// Publisher は予約イベントをRabbitMQの永続キューへ送信する。
// 接続は初回送信時に確立し、送信に失敗した場合は破棄して次回に再接続する。
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher はPublisherを生成する。queueが空の場合はDefaultQueueNameを使用する。
func NewPublisher(url, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{url: url, queue: queue, dialTimeout: DefaultDialTimeout}
}

// Name は通知先の名前を返す。
func (p *Publisher) Name() string {
	return "amqp"
}

// Publish は予約イベントを永続メッセージとして送信する。
func (p *Publisher) Publish(ctx context.Context, ev model.AppointmentEvent) error {
	pub, err := buildPublishing(ev, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(ctx); err != nil {
		return err
	}

	// デフォルトexchangeを使い、ルーティングキーにキュー名を指定する
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

// Close はチャネルと接続を閉じる。
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	p.ch = nil
	p.conn = nil
	return err
}

// ensureChannel は接続とチャネルを用意し、キューを宣言する。p.muを保持して呼び出す。
// 接続確立はdialTimeoutとctxの期限の短い方で打ち切る。
func (p *Publisher) ensureChannel(ctx context.Context) error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()

	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("rabbitmq: dial failed: %w", context.DeadlineExceeded)
		}
		if remaining < timeout {
			timeout = remaining
		}
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}

	// ブローカー再起動後もメッセージが残るようdurableで宣言する（冪等）
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

// reset は現在の接続を破棄する。p.muを保持して呼び出す。
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch = nil
	p.conn = nil
}

func buildPublishing(ev model.AppointmentEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(NewAppointmentEventMessage(ev))
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Type),
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}
