package mqtt

import (
	"time"

	"github.com/okian/ourabridge/pkg/logger"
)

const (
	defaultTopicPrefix     = "oura"
	defaultDiscoveryPrefix = "homeassistant"
	defaultNodeID          = "oura_ring"
	defaultDeviceName      = "Oura"
	defaultPublishTimeout  = 5 * time.Second
)

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithTopicPrefix sets the root for state, attribute and availability topics.
func WithTopicPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.topicPrefix = prefix
		}
	}
}

// WithDiscoveryPrefix sets the Home Assistant discovery root.
func WithDiscoveryPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.discoveryPrefix = prefix
		}
	}
}

// WithNodeID sets the discovery node id.
func WithNodeID(id string) Option {
	return func(p *Publisher) {
		if id != "" {
			p.nodeID = id
		}
	}
}

// WithDeviceName sets the device name shown by the host.
func WithDeviceName(name string) Option {
	return func(p *Publisher) {
		if name != "" {
			p.deviceName = name
		}
	}
}

// WithRetain controls the retained flag on state messages.
func WithRetain(retain bool) Option {
	return func(p *Publisher) { p.retain = retain }
}

// WithQoS sets the publish QoS level.
func WithQoS(qos byte) Option {
	return func(p *Publisher) {
		if qos <= 2 {
			p.qos = qos
		}
	}
}

// WithPublishTimeout bounds the wait for each publish acknowledgement.
func WithPublishTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}
