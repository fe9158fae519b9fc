package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-guard/config"
	"github.com/oksasatya/go-auth-guard/pkg/helpers"
	"github.com/oksasatya/go-auth-guard/pkg/mailer"
)

type jobSender interface {
	SendJob(ctx context.Context, job mailer.EmailJob) error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeDrop
	outcomeRetry
)

// process decodes and sends one queued job. Malformed payloads and unknown
// templates are dropped; delivery failures are requeued.
func process(ctx context.Context, sender jobSender, body []byte, logger *logrus.Logger) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		logger.WithError(err).Warn("bad message")
		return outcomeDrop
	}
	if job.To == "" {
		logger.Warn("message without recipient")
		return outcomeDrop
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := sender.SendJob(c, job); err != nil {
		if errors.Is(err, mailer.ErrUnknownTemplate) {
			logger.WithError(err).Warn("render failed")
			return outcomeDrop
		}
		logger.WithError(err).WithField("template", job.Template).Error("send failed")
		return outcomeRetry
	}
	return outcomeAck
}

func settle(msg amqp.Delivery, o outcome) {
	switch o {
	case outcomeAck:
		_ = msg.Ack(false)
	case outcomeDrop:
		_ = msg.Nack(false, false)
	case outcomeRetry:
		_ = msg.Nack(false, true)
	}
}

func main() {
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)
	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if _, err := helpers.DeclareQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx, stopCtx := context.WithCancel(context.Background())
	defer stopCtx()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			settle(msg, process(ctx, mg, msg.Body, logger))
		}
		close(done)
	}()

	logger.Infof("email worker listening on queue=%s", cfg.RabbitMQEmailQueue)
	<-stop
	logger.Info("shutting down...")
	stopCtx()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
