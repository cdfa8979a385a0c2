package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"airfilter_hub/internal/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
)

// Options configures the broker connection.
type Options struct {
	Broker     string // e.g. tcp://10.42.0.1:1883
	ClientID   string
	Username   string
	Password   string
	RelayTopic string // command token destination, fixed per deployment
}

// RealClient talks to an actual broker. It serves both roles: relay
// publisher and sensor subscriber.
type RealClient struct {
	client     paho.Client
	relayTopic string
}

// NewRealClient connects to the broker with automatic reconnect.
func NewRealClient(o Options) (*RealClient, error) {
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealClient{client: client, relayTopic: o.RelayTopic}, nil
}

var (
	_ RelayPublisher   = (*RealClient)(nil)
	_ SensorSubscriber = (*RealClient)(nil)
)

// PublishState sends the command token, retained so a restarting actuator
// picks up the last commanded state. QoS 1: the relay must not miss it.
func (c *RealClient) PublishState(state models.RelayState) error {
	token := c.client.Publish(c.relayTopic, 1, true, string(state))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish relay state: %w", err)
	}
	return nil
}

// Subscribe attaches the handler to every sensor topic. QoS 0 is enough:
// samples arrive every few seconds, a dropped one is harmless.
func (c *RealClient) Subscribe(topics []string, handler MessageHandler) error {
	for _, topic := range topics {
		token := c.client.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
			handler(msg.Topic(), msg.Payload())
		})
		if !token.WaitTimeout(connectTimeout) {
			return fmt.Errorf("subscribe timeout on %q", topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe %q: %w", topic, err)
		}
	}
	return nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
