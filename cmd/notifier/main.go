package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"eventbooking/internal/notifications"
	"eventbooking/internal/shared/config"
	"eventbooking/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "notifier",
		Usage: "Consume booking events and log them, flagging tickets that were not returned",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "group", Value: "eventbooking-notifier", EnvVars: []string{"KAFKA_CONSUMER_GROUP"}},
			&cli.IntFlag{Name: "workers", Value: 2},
			&cli.BoolFlag{Name: "from-start", Value: true, Usage: "read the topic from the oldest offset on first start"},
			&cli.IntFlag{Name: "retries", Value: 3},
			&cli.DurationFlag{Name: "retry-backoff", Value: time.Second},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg := config.Load()
	appLogger := logger.New()

	consumerConfig := notifications.DefaultConsumerConfig()
	consumerConfig.Brokers = cfg.Kafka.Brokers
	consumerConfig.Topics = []string{cfg.Kafka.Topic}
	consumerConfig.GroupID = c.String("group")
	consumerConfig.OffsetOldest = c.Bool("from-start")
	consumerConfig.MaxRetries = c.Int("retries")
	consumerConfig.RetryBackoffDuration = c.Duration("retry-backoff")

	consumer, err := notifications.NewConsumer(consumerConfig, notifications.LogHandler(appLogger), appLogger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Run(ctx, c.Int("workers")); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
