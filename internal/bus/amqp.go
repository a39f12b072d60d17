package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clinic-console-server/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	reconnectBackoffBase = time.Second
	reconnectBackoffCap  = 30 * time.Second
)

// AMQPBus is the RabbitMQ-backed Bus for multi-node deployments. Events are
// published to a topic exchange with routing key "clinic.<table>.<op>".
// All subscriptions for one table share a single exclusive queue bound to
// "clinic.<table>.*"; the queue is reference-counted and deleted when the
// last subscriber unsubscribes.
type AMQPBus struct {
	url      string
	exchange string

	mu     sync.Mutex
	conn   *amqp.Connection
	pubCh  *amqp.Channel
	tables map[string]*tableConsumer
	nextID int
	closed bool
}

type tableConsumer struct {
	table  string
	ch     *amqp.Channel
	queue  string
	subs   map[int]*amqpSubscription
	cancel chan struct{}
}

type amqpSubscription struct {
	bus     *AMQPBus
	table   string
	id      int
	filter  Filter
	handler Handler
}

// NewAMQPBus connects to the broker and declares the exchange
func NewAMQPBus(url, exchange string) (*AMQPBus, error) {
	if url == "" {
		return nil, errors.New("amqp URL is required")
	}
	if exchange == "" {
		return nil, errors.New("exchange name is required")
	}

	b := &AMQPBus{
		url:      url,
		exchange: exchange,
		tables:   make(map[string]*tableConsumer),
	}
	if err := b.connect(); err != nil {
		return nil, err
	}

	go b.monitor()
	return b, nil
}

func (b *AMQPBus) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open publish channel: %w", err)
	}

	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.pubCh = ch
	b.mu.Unlock()
	return nil
}

// monitor watches the connection and rebuilds consumers after a broker drop,
// backing off exponentially up to a cap
func (b *AMQPBus) monitor() {
	for {
		b.mu.Lock()
		if b.closed || b.conn == nil {
			b.mu.Unlock()
			return
		}
		closeCh := b.conn.NotifyClose(make(chan *amqp.Error, 1))
		b.mu.Unlock()

		err, ok := <-closeCh
		if !ok || b.isClosed() {
			return
		}
		logger.Warn("Change bus connection lost, reconnecting", zap.Error(err))

		backoff := reconnectBackoffBase
		for {
			if b.isClosed() {
				return
			}
			if err := b.connect(); err != nil {
				logger.Error("Change bus reconnect failed",
					zap.Error(err),
					zap.Duration("retry_in", backoff),
				)
				time.Sleep(backoff)
				if backoff*2 < reconnectBackoffCap {
					backoff *= 2
				}
				continue
			}
			b.restartConsumers()
			logger.Info("Change bus reconnected")
			break
		}
	}
}

func (b *AMQPBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// restartConsumers re-declares per-table queues on the fresh connection
func (b *AMQPBus) restartConsumers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for table, tc := range b.tables {
		close(tc.cancel)
		fresh, err := b.startConsumerLocked(table)
		if err != nil {
			logger.Error("Failed to restart table consumer",
				zap.String("table", table),
				zap.Error(err),
			)
			continue
		}
		fresh.subs = tc.subs
		b.tables[table] = fresh
	}
}

// Subscribe registers a handler for events on the given table, sharing the
// table's consumer with other subscribers
func (b *AMQPBus) Subscribe(table string, filter Filter, handler Handler) (Subscription, error) {
	if table == "" {
		return nil, errors.New("table is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("bus is closed")
	}

	tc, ok := b.tables[table]
	if !ok {
		var err error
		tc, err = b.startConsumerLocked(table)
		if err != nil {
			return nil, err
		}
		b.tables[table] = tc
	}

	b.nextID++
	sub := &amqpSubscription{
		bus:     b,
		table:   table,
		id:      b.nextID,
		filter:  filter,
		handler: handler,
	}
	tc.subs[sub.id] = sub

	return sub, nil
}

// startConsumerLocked declares the shared table queue and starts its delivery
// goroutine. Caller holds b.mu.
func (b *AMQPBus) startConsumerLocked(table string) (*tableConsumer, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}

	// Exclusive auto-delete queue: each process gets its own copy of every
	// event, and the broker cleans up when the process goes away.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	key := fmt.Sprintf("clinic.%s.*", table)
	if err := ch.QueueBind(q.Name, key, b.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	tc := &tableConsumer{
		table:  table,
		ch:     ch,
		queue:  q.Name,
		subs:   make(map[int]*amqpSubscription),
		cancel: make(chan struct{}),
	}

	go b.deliver(tc, deliveries)
	return tc, nil
}

func (b *AMQPBus) deliver(tc *tableConsumer, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-tc.cancel:
			_ = tc.ch.Close()
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal(d.Body, &event); err != nil {
				logger.Warn("Discarding malformed change event",
					zap.String("table", tc.table),
					zap.Error(err),
				)
				continue
			}

			b.mu.Lock()
			var targets []*amqpSubscription
			for _, sub := range tc.subs {
				targets = append(targets, sub)
			}
			b.mu.Unlock()

			for _, sub := range targets {
				if sub.filter == nil || sub.filter(event) {
					sub.handler(event)
				}
			}
		}
	}
}

// Publish sends the event to the exchange
func (b *AMQPBus) Publish(event Event) error {
	if event.Table == "" {
		return errors.New("event table is required")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	b.mu.Lock()
	ch := b.pubCh
	closed := b.closed
	b.mu.Unlock()
	if closed || ch == nil {
		return errors.New("bus is closed")
	}

	key := fmt.Sprintf("clinic.%s.%s", event.Table, event.Op)
	err = ch.Publish(b.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close tears down all consumers and the connection
func (b *AMQPBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, tc := range b.tables {
		close(tc.cancel)
	}
	b.tables = make(map[string]*tableConsumer)
	conn := b.conn
	b.conn = nil
	b.pubCh = nil
	b.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Unsubscribe removes this registration and tears the table consumer down
// when it was the last one
func (s *amqpSubscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	tc, ok := s.bus.tables[s.table]
	if !ok {
		return
	}
	if _, ok := tc.subs[s.id]; !ok {
		return
	}
	delete(tc.subs, s.id)
	if len(tc.subs) == 0 {
		close(tc.cancel)
		delete(s.bus.tables, s.table)
	}
}
