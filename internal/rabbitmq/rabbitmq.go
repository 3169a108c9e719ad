package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gigline/backstage/internal/services"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName   = "backstage.direct"
	MailQueueName  = "rewards.mail"
	RoutingKeyMail = "mail"
	ReconnectDelay = 5 * time.Second
)

type RabbitMQClient struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	URL     string
}

var Client *RabbitMQClient

// SetupRabbitMQ initializes the connection and declares the topology
func SetupRabbitMQ(url string) error {
	Client = &RabbitMQClient{
		URL: url,
	}
	return Client.connect()
}

func (c *RabbitMQClient) connect() error {
	var err error

	log.Printf("Attempting to connect to RabbitMQ...")
	c.Conn, err = amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.Channel, err = c.Conn.Channel()
	if err != nil {
		c.Conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := c.declareTopology(); err != nil {
		c.Channel.Close()
		c.Conn.Close()
		return err
	}

	// Watch for errors in background
	go c.watchConnection()

	log.Println("RabbitMQ connected successfully")
	return nil
}

func (c *RabbitMQClient) declareTopology() error {
	err := c.Channel.ExchangeDeclare(
		ExchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = c.Channel.QueueDeclare(
		MailQueueName, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare mail queue: %w", err)
	}

	err = c.Channel.QueueBind(
		MailQueueName,  // queue name
		RoutingKeyMail, // routing key
		ExchangeName,   // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind mail queue: %w", err)
	}

	return nil
}

func (c *RabbitMQClient) watchConnection() {
	notifyClose := c.Conn.NotifyClose(make(chan *amqp.Error))

	if err := <-notifyClose; err != nil {
		log.Printf("RabbitMQ connection closed: %v. Reconnecting...", err)
		c.reconnect()
	}
}

func (c *RabbitMQClient) reconnect() {
	for {
		time.Sleep(ReconnectDelay)
		if err := c.connect(); err == nil {
			log.Println("RabbitMQ reconnected")
			return
		} else {
			log.Printf("Failed to reconnect to RabbitMQ: %v. Retrying in %v...", err, ReconnectDelay)
		}
	}
}

// Close closes the connection and channel
func Close() {
	if Client != nil {
		if Client.Channel != nil {
			Client.Channel.Close()
		}
		if Client.Conn != nil {
			Client.Conn.Close()
		}
	}
}

// Mailer publishes reward emails to the mail queue. It satisfies
// services.RewardMailer; construct with NewMailer after SetupRabbitMQ.
type Mailer struct{}

func NewMailer() *Mailer {
	return &Mailer{}
}

var _ services.RewardMailer = (*Mailer)(nil)

// EnqueueRewardEmail publishes one reward email message. The caller treats
// errors as non-fatal; a claim must never fail because the broker is down.
func (m *Mailer) EnqueueRewardEmail(email services.RewardEmail) error {
	if Client == nil || Client.Channel == nil || Client.Channel.IsClosed() {
		return fmt.Errorf("RabbitMQ client not (yet) connected")
	}

	body, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("failed to marshal reward email: %w", err)
	}

	err = Client.Channel.Publish(
		ExchangeName,   // exchange
		RoutingKeyMail, // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
