package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"cluster-registration/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeKind              = "topic"
	RoutingKeyRegistrationNew = "registration.created"
)

// amqpChannel 只取用到的方法，方便測試替換
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpSession 一組連線與 channel，closed 在 broker 斷線時收到通知
type amqpSession struct {
	conn    io.Closer
	channel amqpChannel
	closed  chan *amqp.Error
}

func (s *amqpSession) alive() bool {
	if s.closed == nil {
		return true
	}
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

func (s *amqpSession) close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

func dialAMQP(url string, exchange string) (*amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &amqpSession{
		conn:    conn,
		channel: ch,
		closed:  conn.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

// AMQPSink 發布到 topic exchange；連線中斷後下一次投遞會重新連線
type AMQPSink struct {
	connect  func() (*amqpSession, error)
	session  *amqpSession
	exchange string
	mu       sync.Mutex // amqp.Channel 不可併發 publish
}

func NewAMQPSink(url string, exchange string) (*AMQPSink, error) {
	sink := newAMQPSinkWithDialer(func() (*amqpSession, error) {
		return dialAMQP(url, exchange)
	}, exchange)

	session, err := sink.connect()
	if err != nil {
		return nil, err
	}
	sink.session = session
	return sink, nil
}

func newAMQPSinkWithDialer(connect func() (*amqpSession, error), exchange string) *AMQPSink {
	return &AMQPSink{connect: connect, exchange: exchange}
}

func newAMQPSinkWithChannel(ch amqpChannel, exchange string) *AMQPSink {
	return newAMQPSinkWithDialer(func() (*amqpSession, error) {
		return &amqpSession{channel: ch}, nil
	}, exchange)
}

func (s *AMQPSink) Name() string {
	return "amqp"
}

func (s *AMQPSink) Deliver(ctx context.Context, n *model.RegistrationNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID.String(),
		Timestamp:    n.RegisteredAt,
		Body:         body,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.publish(ctx, msg)
	if err != nil && isConnectionError(err) {
		// 連線或 channel 已關閉：丟掉舊的 session 重連後再送一次
		s.dropSession()
		err = s.publish(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (s *AMQPSink) publish(ctx context.Context, msg amqp.Publishing) error {
	if s.session != nil && !s.session.alive() {
		s.dropSession()
	}
	if s.session == nil {
		session, err := s.connect()
		if err != nil {
			return fmt.Errorf("rabbitmq reconnect: %w", err)
		}
		s.session = session
	}
	return s.session.channel.PublishWithContext(ctx, s.exchange, RoutingKeyRegistrationNew, false, false, msg)
}

func (s *AMQPSink) dropSession() {
	if s.session != nil {
		s.session.close()
		s.session = nil
	}
}

func isConnectionError(err error) bool {
	var amqpErr *amqp.Error
	return errors.Is(err, amqp.ErrClosed) || errors.As(err, &amqpErr)
}

func (s *AMQPSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropSession()
}
