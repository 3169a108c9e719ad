package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gigline/backstage/internal/rabbitmq"
	"github.com/gigline/backstage/internal/services"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RewardMailWorker drains the reward mail queue and delivers via SMTP.
// Delivery failures are logged and the message is dropped; a reward email is
// a courtesy, the claim row is the source of truth.
type RewardMailWorker struct {
	emailService *services.EmailService
}

func NewRewardMailWorker(es *services.EmailService) *RewardMailWorker {
	return &RewardMailWorker{
		emailService: es,
	}
}

// StartWorker starts the consumer process
// ctx is used for graceful shutdown signal
func (w *RewardMailWorker) StartWorker(ctx context.Context) error {
	if rabbitmq.Client == nil {
		return fmt.Errorf("RabbitMQ client not initialized")
	}

	ch := rabbitmq.Client.Channel
	qName := rabbitmq.MailQueueName

	msgs, err := ch.Consume(
		qName,             // queue
		"reward-mailer-1", // consumer tag
		false,             // auto-ack (manual ack after processing)
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf("Reward mail worker started, consuming %s", qName)

	done := make(chan bool)

	go func() {
		for d := range msgs {
			w.processMessage(d)
		}
		done <- true
	}()

	select {
	case <-ctx.Done():
		log.Println("Reward mail worker shutting down...")
		ch.Cancel("reward-mailer-1", false)
		<-done
	case <-done:
	}

	return nil
}

func (w *RewardMailWorker) processMessage(d amqp.Delivery) {
	var email services.RewardEmail
	if err := json.Unmarshal(d.Body, &email); err != nil {
		log.Printf("Discarding malformed reward email message: %v", err)
		d.Nack(false, false)
		return
	}

	if err := w.emailService.SendRewardEmail(email); err != nil {
		// No requeue: SMTP is flaky enough that redelivery loops hurt more
		// than a missed courtesy email
		log.Printf("Failed to deliver reward email to %s: %v", email.To, err)
		d.Nack(false, false)
		return
	}

	log.Printf("Reward email delivered to %s for %s", email.To, email.LocationName)
	d.Ack(false)
}
