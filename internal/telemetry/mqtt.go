package telemetry

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// NewMQTTClient connects to broker with a unique client id derived from name.
func NewMQTTClient(broker, name string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTTransport publishes each envelope to <prefix>/<kind>/<device id>.
type MQTTTransport struct {
	client  mqttPublisher
	prefix  string
	qos     byte
	timeout time.Duration
	close   func()
}

func NewMQTTTransport(client mqtt.Client, prefix string, qos byte) *MQTTTransport {
	return &MQTTTransport{
		client:  client,
		prefix:  prefix,
		qos:     qos,
		timeout: 5 * time.Second,
		close:   func() { client.Disconnect(250) },
	}
}

func (t *MQTTTransport) Send(ctx context.Context, env Envelope, payload []byte) error {
	topic := Topic(t.prefix, env.Kind, env.DeviceID)
	token := t.client.Publish(topic, t.qos, false, payload)

	wait := t.timeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
		wait = time.Until(dl)
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("mqtt publish %s: timed out after %s", topic, wait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (t *MQTTTransport) Close() error {
	if t.close != nil {
		t.close()
	}
	return nil
}
