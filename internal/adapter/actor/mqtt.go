package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/zwconsole/internal/config"
	"github.com/berfenger/zwconsole/internal/core/domain"
	"github.com/berfenger/zwconsole/internal/mqtt"
	"github.com/berfenger/zwconsole/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTActor mirrors network state changes to an MQTT broker and turns
// messages on value set topics into driver requests for its parent.
type MQTTActor struct {
	config         *config.Config
	behavior       actor.Behavior
	stash          *actorutil.Stash
	client         *mqtt.MQTTClient
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	published      chan<- rawMessage
	logger         *zap.Logger
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	ReplyTo *actor.PID
	Error   error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type onEventStreamMessage struct {
	event domain.StateChangeEvent
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

type nodeStatePayload struct {
	HomeID       string `json:"home_id"`
	NodeID       uint8  `json:"node_id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
	Type         string `json:"type"`
	State        string `json:"state"`
}

func NewMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")
		self := ctx.Self()
		root := ctx.ActorSystem().Root

		// create MQTT client
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			root.Send(self, MQTTConnectionLost{Error: err})
		})

		// connect to MQTT server
		state.client.Connect(func(err error) {
			if err != nil {
				root.Send(self, MQTTConnectionLost{Error: err})
			} else {
				root.Send(self, MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")
		self := ctx.Self()
		root := ctx.ActorSystem().Root

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		state.subscribeEventStream(ctx)

		// subscribe to MQTT command topic
		state.client.SubscribeToCommandTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err == nil && cmd != nil {
				root.Send(self, ParsedCommand{Command: cmd})
			}
		}, func(err error) {
			if err != nil {
				root.Send(self, MQTTConnectionLost{Error: err})
			} else {
				root.Send(self, MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		// init completed, transition to default state
		state.logger.Debug("mqtt@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: state.client != nil && state.client.IsConnected(),
			State:   "idle",
		})
	case ParsedCommand:
		// route command to parent
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.Any("message", msg))
		state.publishMessage(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case onEventStreamMessage:
		state.logger.Debug("mqtt@default state change", zap.String("event", msg.event.StateChangeEvent()))
		state.publishStateChange(ctx, msg.event)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MQTTActor) subscribeEventStream(ctx actor.Context) {
	if state.eventStream == nil || state.eventStreamSub != nil {
		return
	}
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
		if ev, ok := value.(domain.StateChangeEvent); ok {
			root.Send(self, onEventStreamMessage{event: ev})
		}
	})
}

func (state *MQTTActor) stateChange2MQTTMessage(event domain.StateChangeEvent) *rawMessage {
	switch msg := event.(type) {
	case domain.ValueUpdatedEvent:
		return &rawMessage{
			topic:   state.client.ValueStateTopic(msg.Value.ID),
			message: msg.Value.Content,
			retain:  true,
		}
	case domain.ValueRemovedEvent:
		return &rawMessage{
			topic:   state.client.ValueStateTopic(msg.ID),
			message: mqtt.MQTT_PAYLOAD_CLEAR,
			retain:  true,
		}
	case domain.NodeAddedEvent:
		payload, err := json.Marshal(nodeStatePayload{
			HomeID:       msg.Node.HomeID.String(),
			NodeID:       uint8(msg.Node.NodeID),
			Name:         msg.Node.Name,
			Manufacturer: msg.Node.Manufacturer,
			Product:      msg.Node.Product,
			Type:         msg.Node.Type,
			State:        mqtt.MQTT_PAYLOAD_ONLINE,
		})
		if err != nil {
			state.logger.Error("mqtt: cannot encode node state", zap.Error(err))
			return nil
		}
		return &rawMessage{
			topic:   state.client.NodeStateTopic(msg.Node.Key()),
			message: string(payload),
			retain:  true,
		}
	case domain.NodeRemovedEvent:
		return &rawMessage{
			topic:   state.client.NodeStateTopic(msg.Key),
			message: mqtt.MQTT_PAYLOAD_CLEAR,
			retain:  true,
		}
	default:
		return nil
	}
}

func (state *MQTTActor) publishStateChange(ctx actor.Context, event domain.StateChangeEvent) {
	msg := state.stateChange2MQTTMessage(event)
	if msg != nil {
		state.logger.Sugar().Debugf("mqtt@publish: state publish %s => %s", msg.topic, msg.message)
		state.publishMessage(ctx, msg.topic, msg.message, msg.retain, nil)
	}
}

func (state *MQTTActor) publishMessage(ctx actor.Context, topic, payload string, retain bool, replyTo *actor.PID) {
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.client.Publish(topic, payload, 1, retain, func(err error) {
		root.Send(self, publishResult{ReplyTo: replyTo, Error: err})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.PublishResultReceive)
}

func (state *MQTTActor) PublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		// log error and return to default state
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.PublishMessageResponse{
				ActorResponseMixIn: domain.ResponseWithError(msg.Error),
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if state.client != nil {
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

// Dummy actor
func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, published chan<- rawMessage, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		published:   published,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		state.subscribeEventStream(ctx)
	case *actor.Stopping:
		if state.eventStreamSub != nil {
			state.eventStream.Unsubscribe(state.eventStreamSub)
			state.eventStreamSub = nil
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		ctx.Send(ctx.Parent(), msg)
	case onEventStreamMessage:
		if raw := state.stateChange2MQTTMessage(msg.event); raw != nil && state.published != nil {
			state.published <- *raw
		}
	case domain.PublishMessageRequest:
		if state.published != nil {
			state.published <- rawMessage{topic: msg.Topic, message: msg.Payload, retain: msg.Retain}
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishMessageResponse{})
	}
}
