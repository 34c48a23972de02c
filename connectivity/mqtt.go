package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT follows a broker link. Without a status topic the broker connection
// itself is the signal. With one, retained messages on the topic ("online"
// or "offline", "1" or "0", "true" or "false") decide, and losing the broker
// still reports disconnected.
type MQTT struct {
	*Broadcaster

	client mqtt.Client
	topic  string
}

// NewMQTT returns a watcher for broker (for example tcp://gateway:1883).
// The client reconnects on its own; call Run to connect.
func NewMQTT(broker, clientID, topic string, log *slog.Logger) *MQTT {
	m := &MQTT{Broadcaster: NewBroadcaster(log), topic: topic}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(m.onLost)
	m.client = mqtt.NewClient(opts)
	return m
}

// Run connects and blocks until ctx is done, then disconnects.
func (m *MQTT) Run(ctx context.Context) error {
	defer m.Close()
	token := m.client.Connect()
	select {
	case <-ctx.Done():
		m.client.Disconnect(250)
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connectivity: mqtt connect: %w", err)
	}
	<-ctx.Done()
	m.client.Disconnect(250)
	return ctx.Err()
}

func (m *MQTT) onConnect(c mqtt.Client) {
	if m.topic == "" {
		m.Publish(true)
		return
	}
	m.log.Info("mqtt connected, following status topic", "topic", m.topic)
	token := c.Subscribe(m.topic, 1, m.onMessage)
	go func() {
		if token.WaitTimeout(10*time.Second) && token.Error() != nil {
			m.log.Warn("mqtt subscribe", "topic", m.topic, "error", token.Error())
		}
	}()
}

func (m *MQTT) onLost(_ mqtt.Client, err error) {
	m.log.Warn("mqtt connection lost", "error", err)
	m.Publish(false)
}

func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	up, ok := parseStatus(msg.Payload())
	if !ok {
		m.log.Warn("unrecognized status payload", "topic", msg.Topic(), "payload", string(msg.Payload()))
		return
	}
	m.Publish(up)
}

func parseStatus(payload []byte) (up, ok bool) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "online", "up", "1", "true":
		return true, true
	case "offline", "down", "0", "false":
		return false, true
	}
	return false, false
}
