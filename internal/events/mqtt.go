package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/config"
)

const (
	mqttPublishTimeout = 5 * time.Second
	connectAttempts    = 5
)

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes events on <prefix>/<entity>/<action>.
type MQTTPublisher struct {
	client mqttClient
	prefix string
	qos    byte
}

// DialMQTT connects to the configured broker, retrying with exponential
// backoff until ctx is done or the attempts run out.
func DialMQTT(ctx context.Context, cfg config.MQTTConfig, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT client connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Error().Err(err).Str("broker", cfg.Broker).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	connect := func() error {
		token := client.Connect()
		if !token.WaitTimeout(cfg.ConnectTimeout) {
			return errors.New("connect timeout")
		}
		return token.Error()
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectAttempts), ctx)
	err := backoff.RetryNotify(connect, b, func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("MQTT broker not ready")
	})
	if err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, err)
	}

	return &MQTTPublisher{client: client, prefix: prefix, qos: cfg.QoS}, nil
}

// Topic returns the topic e is published on.
func (p *MQTTPublisher) Topic(e Event) string {
	return route("/", p.prefix, e)
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	data, err := e.payload()
	if err != nil {
		return err
	}

	topic := p.Topic(e)
	token := p.client.Publish(topic, p.qos, false, data)
	select {
	case <-token.Done():
	case <-time.After(mqttPublishTimeout):
		return fmt.Errorf("publish %s: timeout", topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
