package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/motionscript/internal/monitoring"
)

// DefaultMQTTTopic carries JSON-encoded RawSample payloads.
const DefaultMQTTTopic = "motionscript/controller"

// MQTTSource subscribes to a topic of JSON RawSample messages and serves
// the most recent one.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	last   latest
}

// DialMQTT connects to broker (for example tcp://localhost:1883) and
// subscribes to topic. A zero timeout waits up to ten seconds for each
// step.
func DialMQTT(broker, topic, clientID string, timeout time.Duration) (*MQTTSource, error) {
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if clientID == "" {
		clientID = fmt.Sprintf("motionscript-%d", time.Now().UnixNano())
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out after %s", broker, timeout)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}

	s := &MQTTSource{client: client, topic: topic}
	token := client.Subscribe(topic, 0, s.handle)
	if !token.WaitTimeout(timeout) || token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("mqtt subscribe %s: %v", topic, token.Error())
	}
	monitoring.Opsf("tracking: subscribed to %s on %s", topic, broker)
	return s, nil
}

func (s *MQTTSource) handle(_ mqtt.Client, msg mqtt.Message) {
	if err := s.ingest(msg.Payload()); err != nil {
		monitoring.Tracef("tracking: mqtt %s: %v", msg.Topic(), err)
	}
}

func (s *MQTTSource) ingest(payload []byte) error {
	var sample RawSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return fmt.Errorf("decode sample: %w", err)
	}
	s.last.set(sample)
	return nil
}

func (s *MQTTSource) Read(context.Context) (RawSample, error) {
	return s.last.get()
}

func (s *MQTTSource) Close() error {
	if s.client != nil {
		s.client.Unsubscribe(s.topic).WaitTimeout(time.Second)
		s.client.Disconnect(250)
	}
	return nil
}
