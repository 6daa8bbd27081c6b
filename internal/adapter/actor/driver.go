package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/zwconsole/internal/core/domain"
	"github.com/berfenger/zwconsole/internal/util/actorutil"
	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// DriverActor serializes operation requests to the driver. One request is
// in flight at a time; requests arriving meanwhile are stashed.
type DriverActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	driver   zwave.Driver
	timeout  time.Duration
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

const defaultDriverTimeout = 5 * time.Second

func NewDriverActor(driver zwave.Driver, timeout time.Duration, logger *zap.Logger) *DriverActor {
	if timeout <= 0 {
		timeout = defaultDriverTimeout
	}
	act := &DriverActor{
		driver:   driver,
		timeout:  timeout,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_DRIVER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DriverActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DriverActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("driver@starting started")
		if state.driver == nil {
			panic(zwave.ErrNoDevice)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("driver@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DriverActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("driver@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DRIVER,
			Healthy: true,
			State:   "idle",
		})
	case domain.DriverRequest:
		state.logger.Debug("driver@default: DriverRequest",
			zap.String("request_id", msg.Id()),
			zap.String("operation", msg.DriverOperation()))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskErr(ctx, func() error {
			return state.execute(msg)
		}), mapTaskResult(msg, sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: operationResponse(msg, err),
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDriver)
	case *actor.Stopping:
		state.close()
	default:
		state.logger.Debug("driver@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DriverActor) WaitingDriver(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		if resp, ok := msg.message.(domain.DriverOperationResponse); ok {
			if resp.HasResponseError() {
				state.logger.Warn("driver@WaitingDriver operation rejected",
					zap.String("request_id", resp.RequestId),
					zap.String("operation", resp.Operation),
					zap.Error(resp.ResponseError))
			} else {
				state.logger.Info("driver@WaitingDriver operation accepted",
					zap.String("request_id", resp.RequestId),
					zap.String("operation", resp.Operation))
			}
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DRIVER,
			Healthy: true,
			State:   "busy",
		})
	case *actor.Stopping:
		state.close()
	default:
		state.stash.Stash(ctx, msg)
		state.logger.Debug("driver@WaitingDriver stash",
			zap.String("type", fmt.Sprintf("%T", msg)),
			zap.Int("stashed", state.stash.Len()))
	}
}

func (state *DriverActor) execute(req domain.DriverRequest) error {
	switch r := req.(type) {
	case domain.AddNodeRequest:
		return state.driver.AddNode(r.HomeID, r.Secure)
	case domain.RemoveNodeRequest:
		return state.driver.RemoveNode(r.HomeID)
	case domain.SetValueRequest:
		return state.driver.SetValue(r.ValueID, r.Value)
	case domain.HealNetworkRequest:
		state.driver.HealNetwork(r.HomeID, r.ReturnRoutesOnly)
	case domain.HealNodeRequest:
		state.driver.HealNetworkNode(r.HomeID, r.NodeID, r.ReturnRoutesOnly)
	case domain.TestNetworkRequest:
		state.driver.TestNetwork(r.HomeID, r.Count)
	case domain.TestNodeRequest:
		state.driver.TestNetworkNode(r.HomeID, r.NodeID, r.Count)
	case domain.WriteConfigsRequest:
		state.driver.WriteConfigs()
	default:
		return fmt.Errorf("%w: unsupported request %T", zwave.ErrOperationRejected, req)
	}
	return nil
}

func (state *DriverActor) close() {
	state.logger.Debug("driver: close")
	if state.driver != nil {
		if err := state.driver.Close(); err != nil {
			state.logger.Error("driver: close failed", zap.Error(err))
		}
	}
}

// operationResponse reports err as a rejection. Task failures such as a
// timeout are rejections too.
func operationResponse(req domain.DriverRequest, err error) domain.DriverOperationResponse {
	if err != nil && !errors.Is(err, zwave.ErrOperationRejected) {
		err = fmt.Errorf("%w: %w", zwave.ErrOperationRejected, err)
	}
	return domain.DriverOperationResponse{
		ActorResponseMixIn: domain.ResponseWithError(err),
		RequestId:          req.Id(),
		Operation:          req.DriverOperation(),
	}
}

func mapTaskResult(req domain.DriverRequest, sender *actor.PID) func(*actorutil.Done) *backgroundTaskResult {
	return func(*actorutil.Done) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: operationResponse(req, nil),
			replyTo: sender,
		}
	}
}
