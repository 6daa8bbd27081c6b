package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/berfenger/zwconsole/internal/config"
	"github.com/berfenger/zwconsole/pkg/zwave"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	// MQTT_PAYLOAD_CLEAR removes a retained message from the broker.
	MQTT_PAYLOAD_CLEAR = ""

	MQTT_COMMAND_SET = "set"
)

var ErrInvalidCommand = errors.New("invalid command")

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("zwconsole_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:           mqtt.NewClient(opts),
		cfg:              cfg.MQTT,
		setCommandRegexp: setCommandExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client           mqtt.Client
	cfg              config.MQTTConfig
	setCommandRegexp *regexp.Regexp
}

type ParsedMQTTCommand struct {
	HomeId  string
	NodeId  string
	ValueId string
	Command string
	Payload string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) NodeStateTopic(key zwave.NodeKey) string {
	return nodeStateTopic(c.baseTopic(), key)
}

func (c *MQTTClient) ValueStateTopic(id zwave.ValueID) string {
	return valueStateTopic(c.baseTopic(), id)
}

func (c *MQTTClient) ValueSetTopic(id zwave.ValueID) string {
	return valueStateTopic(c.baseTopic(), id) + "/" + MQTT_COMMAND_SET
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	return parseSetCommand(c.setCommandRegexp, msg.Topic(), msg.Payload())
}

func parseSetCommand(r *regexp.Regexp, topic string, payload []byte) (*ParsedMQTTCommand, error) {
	matches := r.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 {
		return nil, ErrInvalidCommand
	}
	if len(matches[0]) != 4 {
		return nil, fmt.Errorf("invalid set command: %w", ErrInvalidCommand)
	}
	return &ParsedMQTTCommand{
		HomeId:  matches[0][1],
		NodeId:  matches[0][2],
		ValueId: matches[0][3],
		Command: MQTT_COMMAND_SET,
		Payload: string(payload),
	}, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(commandTopic(c.baseTopic()), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnected()
}

func commandTopic(baseTopic string) string {
	return fmt.Sprintf("%s/+/+/value/+/%s", baseTopic, MQTT_COMMAND_SET)
}

func setCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/([0-9a-fA-F]{1,8})/([0-9]{1,3})/value/([0-9a-fA-F]{1,16})/%s$",
		regexp.QuoteMeta(baseTopic), MQTT_COMMAND_SET))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}

func nodeStateTopic(baseTopic string, key zwave.NodeKey) string {
	return fmt.Sprintf("%s/%s/%d/state", baseTopic, key.HomeID, key.NodeID)
}

func valueStateTopic(baseTopic string, id zwave.ValueID) string {
	return fmt.Sprintf("%s/%s/%d/value/%016x", baseTopic, id.HomeID, id.NodeID(), id.ID)
}
