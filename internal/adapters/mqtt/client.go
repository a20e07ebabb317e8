// Package mqtt publishes sensor states to an MQTT broker using Home
// Assistant discovery.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/ourabridge/pkg/logger"
)

const disconnectQuiesceMs = 250

// Client is the part of the paho client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// ClientConfig holds broker connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// WillTopic receives OfflineStatus if the connection drops.
	WillTopic string
}

// Connect dials the broker and returns a connected paho client.
func Connect(ctx context.Context, cfg ClientConfig, l logger.Logger) (paho.Client, error) {
	if l == nil {
		l = logger.Nop()
	}
	l = l.Named("mqtt")

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	if cfg.WillTopic != "" {
		opts.SetWill(cfg.WillTopic, OfflineStatus(), 1, true)
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		l.Info(ctx, "connected to broker", logger.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		l.Warn(ctx, "connection lost", logger.Error(err))
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultPublishTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, err)
	}
	return client, nil
}

// Close disconnects the client.
func Close(c Client) {
	c.Disconnect(disconnectQuiesceMs)
}
