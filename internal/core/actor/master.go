package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/zwconsole/internal/adapter/actor"
	"github.com/berfenger/zwconsole/internal/config"
	"github.com/berfenger/zwconsole/internal/core/domain"
	. "github.com/berfenger/zwconsole/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type DriverActorProvider func() *adactor.DriverActor

// MasterOfPuppetsActor supervises the driver and MQTT actors, routes driver
// requests and aggregates their health.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck  healthCheckResult
	eventStream         *eventstream.EventStream
	driverActor         *actor.PID
	mqttActor           *actor.PID
	driverActorProvider DriverActorProvider
	mqttActorProvider   MQTTActorProvider
	stopping            bool
	logger              *zap.Logger
}

type healthCheckResult struct {
	expected       map[string]bool
	checksReceived int
	respondTo      *actor.PID
}

// NewMasterOfPuppetsActor creates the root actor. mqttActorProvider may be
// nil when the MQTT mirror is disabled.
func NewMasterOfPuppetsActor(config config.Config, eventStream *eventstream.EventStream,
	driverActorProvider DriverActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	if eventStream == nil {
		eventStream = &eventstream.EventStream{}
	}
	act := &MasterOfPuppetsActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:         eventStream,
		driverActorProvider: driverActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start driver child
		driverActorPID, err := state.startDriverActor(ctx)
		if err != nil {
			panic(err)
		}
		state.driverActor = driverActorPID

		// start MQTT child
		if state.mqttActorProvider != nil {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(state.children())
		state.currentHealthCheck.respondTo = ctx.Sender()

		for id, pid := range state.children() {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.DriverRequest:
		state.logger.Debug("master@default DriverRequest", zap.String("request_id", msg.Id()))
		ctx.Forward(state.driverActor)
	case adactor.ParsedCommand:
		// redirect parsedCommand to the driver
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			req, err := ParsedMQTTCommandToRequest(*msg.Command)
			if err != nil {
				state.logger.Warn("master@default invalid mqtt command", zap.Error(err))
				return
			}
			ctx.Send(state.driverActor, req)
		}
	case *actor.Stopping:
		// children terminate as part of our own stop
		state.stopping = true
	case *actor.Terminated:
		if msg.Who.Equal(state.driverActor) && !state.stopping {
			state.logger.Error("master@default driver terminated")
			panic(errors.New("driver terminated"))
		}
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if _, ok := state.currentHealthCheck.expected[msg.Id]; ok {
			state.currentHealthCheck.expected[msg.Id] = msg.Healthy
		}
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		}
	case *actor.Stopping:
		state.stopping = true
		ctx.CancelReceiveTimeout()
		state.behavior.UnbecomeStacked()
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) children() map[string]*actor.PID {
	children := map[string]*actor.PID{
		domain.ACTOR_ID_DRIVER: state.driverActor,
	}
	if state.mqttActor != nil {
		children[domain.ACTOR_ID_MQTT] = state.mqttActor
	}
	return children
}

func (state *MasterOfPuppetsActor) startDriverActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Error("handling failure for driver child", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, decider)

	driverProps := actor.PropsFromProducer(func() actor.Actor {
		return state.driverActorProvider()
	}, actor.WithSupervisor(supervisor))
	driverActorPID, err := ctx.SpawnNamed(driverProps, domain.ACTOR_ID_DRIVER)
	if err != nil {
		return nil, err
	}

	return driverActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset(children map[string]*actor.PID) {
	state.expected = make(map[string]bool, len(children))
	for id := range children {
		state.expected[id] = false
	}
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= len(state.expected)
}

func (state *healthCheckResult) allHealthy() bool {
	for _, healthy := range state.expected {
		if !healthy {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
