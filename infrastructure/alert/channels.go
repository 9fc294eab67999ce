package alert

import (
	"fmt"

	"go.uber.org/zap"
)

// ZapChannel routes alerts into the gateway's structured log.
type ZapChannel struct {
	log  *zap.Logger
	name string
}

func NewZapChannel(name string, log *zap.Logger) *ZapChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapChannel{log: log, name: name}
}

func (c *ZapChannel) Send(alert Alert) error {
	fields := []zap.Field{
		zap.String("level", alert.Level),
		zap.Time("alert_ts", alert.Timestamp),
	}
	for k, v := range alert.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch alert.Level {
	case LevelError, LevelCritical:
		c.log.Error(alert.Message, fields...)
	case LevelWarning:
		c.log.Warn(alert.Message, fields...)
	default:
		c.log.Info(alert.Message, fields...)
	}
	return nil
}

func (c *ZapChannel) Name() string { return c.name }

// MockChannel records alerts for tests.
type MockChannel struct {
	name      string
	Alerts    []Alert
	ShouldErr bool
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(alert Alert) error {
	if c.ShouldErr {
		return fmt.Errorf("mock error")
	}
	c.Alerts = append(c.Alerts, alert)
	return nil
}

func (c *MockChannel) Name() string { return c.name }
