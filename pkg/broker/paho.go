package broker

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// subscribeQoS is the at-least-once delivery level used for every
// subscription and publish.
const subscribeQoS byte = 1

// PahoDialer dials the configured MQTT broker with the Eclipse Paho client.
// Automatic reconnection is disabled: the Manager owns the reconnect policy.
type PahoDialer struct {
	Host     string
	Port     int
	ClientID string
}

func NewPahoDialer(host string, port int, clientID string) *PahoDialer {
	return &PahoDialer{Host: host, Port: port, ClientID: clientID}
}

// Dial connects and returns the live connection. Message callbacks arrive in
// order (paho's ordered mode) so routing preserves per-topic arrival order.
func (d *PahoDialer) Dial(onMessage func(topic string, payload []byte), onLost func(error)) (Conn, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", d.Host, d.Port)).
		SetClientID(d.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetOrderMatters(true)

	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		onMessage(msg.Topic(), msg.Payload())
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		onLost(err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s:%d: %w", d.Host, d.Port, err)
	}
	return &pahoConn{client: client}, nil
}

type pahoConn struct {
	client mqtt.Client
}

func (c *pahoConn) Subscribe(topic string) error {
	// nil handler: deliveries go through the default publish handler so the
	// listen path stays single-threaded.
	token := c.client.Subscribe(topic, subscribeQoS, nil)
	token.Wait()
	return token.Error()
}

func (c *pahoConn) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, subscribeQoS, false, payload)
	token.Wait()
	return token.Error()
}

func (c *pahoConn) Close() {
	c.client.Disconnect(250)
}
