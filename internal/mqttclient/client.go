// Package mqttclient connects the bridge to an MQTT broker: it subscribes to
// the configured topic filters and hands every incoming message to the ingest
// handler. The connection auto-reconnects and re-subscribes on each connect.
package mqttclient

import (
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

type MessageHandler func(topic string, payload []byte)

type Client struct {
	conn      mqtt.Client
	filters   map[string]byte
	handler   MessageHandler
	connected atomic.Bool
	log       zerolog.Logger
}

type Options struct {
	BrokerURL string
	ClientID  string
	// Topics is a comma-separated list of subscription filters.
	Topics   string
	Username string
	Password string
	Log      zerolog.Logger
}

func Connect(opts Options) (*Client, error) {
	c := &Client{
		filters: subscriptionFilters(opts.Topics),
		log:     opts.Log,
	}

	mopts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)
	if opts.Username != "" {
		mopts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		mopts.SetPassword(opts.Password)
	}

	c.conn = mqtt.NewClient(mopts)
	if token := c.conn.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return c, nil
}

// SetMessageHandler installs the ingest callback. Messages that arrive before
// a handler is installed are dropped.
func (c *Client) SetMessageHandler(h MessageHandler) {
	c.handler = h
}

// Publish sends a payload at QoS 0. Failures are logged, not returned:
// transcript replies are best-effort.
func (c *Client) Publish(topic string, payload []byte) {
	if token := c.conn.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
		c.log.Warn().Err(token.Error()).Str("topic", topic).Msg("mqtt publish failed")
	}
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) Close() {
	c.log.Info().Msg("disconnecting from mqtt broker")
	c.conn.Disconnect(1000)
}

// onConnect runs on every (re)connect; subscriptions do not survive a broker
// session drop, so they are re-established here each time.
func (c *Client) onConnect(client mqtt.Client) {
	c.connected.Store(true)

	topics := make([]string, 0, len(c.filters))
	for f := range c.filters {
		topics = append(topics, f)
	}
	c.log.Info().Strs("filters", topics).Msg("mqtt connected, subscribing")

	if token := client.SubscribeMultiple(c.filters, c.onMessage); token.Wait() && token.Error() != nil {
		c.log.Error().Err(token.Error()).Msg("mqtt subscribe failed")
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.connected.Store(false)
	c.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	h := c.handler
	if h == nil {
		c.log.Debug().Str("topic", msg.Topic()).Msg("message before handler installed, dropped")
		return
	}
	h(msg.Topic(), msg.Payload())
}

// subscriptionFilters parses the comma-separated topic list into QoS-0
// subscription filters, falling back to the wildcard when empty.
func subscriptionFilters(raw string) map[string]byte {
	filters := make(map[string]byte)
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			filters[f] = 0
		}
	}
	if len(filters) == 0 {
		filters["#"] = 0
	}
	return filters
}
