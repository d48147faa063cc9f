package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher logs events instead of shipping them; used when no broker is
// configured or reachable.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	p.logger.WithFields(logrus.Fields{
		"event_id":   evt.ID,
		"event_type": evt.Type,
		"key":        evt.Key,
	}).Info("event published")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
