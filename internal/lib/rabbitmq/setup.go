package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// RoutingKeySessionReady — ключ маршрутизации события "для сессии создана встреча".
const RoutingKeySessionReady = "session.ready"

// QueueConfig описывает очередь и ключ, с которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// SessionQueues возвращает очереди, которые объявляет сервис.
func SessionQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "sessions.ready", RoutingKey: RoutingKeySessionReady},
	}
}

// topologyChannel часть amqp.Channel, нужная для объявления exchange и очередей.
type topologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Close() error
}

// SetupChannel открывает канал, объявляет direct-exchange и привязывает к нему очереди.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := declareTopology(ch, exchange, queues); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}

// declareTopology объявляет exchange и очереди. При ошибке закрывает ch.
func declareTopology(ch topologyChannel, exchange string, queues []QueueConfig) (err error) {
	defer func() {
		if err != nil {
			_ = ch.Close()
		}
	}()

	err = ch.ExchangeDeclare(
		exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s with routing key %s: %w", q.QueueName, q.RoutingKey, err)
		}
	}
	return nil
}
