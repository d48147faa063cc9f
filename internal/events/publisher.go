package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DriverLog   = "log"
	DriverKafka = "kafka"
	DriverAMQP  = "amqp"
)

type Config struct {
	Driver string      `mapstructure:"driver"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
	AMQP   AMQPConfig  `mapstructure:"amqp"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AMQPConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

// New builds the configured publisher, falling back to logging when the
// broker cannot be reached at startup.
func New(ctx context.Context, cfg Config, logger logrus.FieldLogger) Publisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	switch cfg.Driver {
	case DriverKafka:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := PingKafka(pingCtx, cfg.Kafka.Brokers); err != nil {
			logger.WithError(err).Warn("kafka unreachable, events will be logged only")
			return NewLogPublisher(logger)
		}
		logger.WithField("topic", cfg.Kafka.Topic).Info("publishing events to kafka")
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	case DriverAMQP:
		p, err := NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unreachable, events will be logged only")
			return NewLogPublisher(logger)
		}
		logger.WithField("queue", cfg.AMQP.Queue).Info("publishing events to rabbitmq")
		return p
	default:
		return NewLogPublisher(logger)
	}
}
