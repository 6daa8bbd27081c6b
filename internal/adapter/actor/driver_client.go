package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/zwconsole/internal/core/domain"
	"github.com/berfenger/zwconsole/internal/core/port"
	"github.com/berfenger/zwconsole/internal/util/actorutil"
	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// DriverClient sends operation requests to the actor owning the driver and
// waits only for the synchronous accept or reject.
type DriverClient struct {
	root    *actor.RootContext
	target  *actor.PID
	timeout time.Duration
	logger  *zap.Logger
}

func NewDriverClient(root *actor.RootContext, target *actor.PID, timeout time.Duration, logger *zap.Logger) *DriverClient {
	if timeout <= 0 {
		timeout = defaultDriverTimeout
	}
	return &DriverClient{
		root:    root,
		target:  target,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "driver_client")),
	}
}

func (c *DriverClient) AddNode(ctx context.Context, home zwave.HomeID, secure bool) error {
	return c.request(ctx, domain.AddNodeRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
		HomeID:             home,
		Secure:             secure,
	})
}

func (c *DriverClient) RemoveNode(ctx context.Context, home zwave.HomeID) error {
	return c.request(ctx, domain.RemoveNodeRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
		HomeID:             home,
	})
}

func (c *DriverClient) SetValue(ctx context.Context, id zwave.ValueID, value string) error {
	return c.request(ctx, domain.SetValueRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
		ValueID:            id,
		Value:              value,
	})
}

func (c *DriverClient) HealNetwork(ctx context.Context, home zwave.HomeID, returnRoutesOnly bool) error {
	return c.request(ctx, domain.HealNetworkRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
		HomeID:             home,
		ReturnRoutesOnly:   returnRoutesOnly,
	})
}

func (c *DriverClient) HealNode(ctx context.Context, home zwave.HomeID, node zwave.NodeID, returnRoutesOnly bool) error {
	return c.request(ctx, domain.HealNodeRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
		HomeID:             home,
		NodeID:             node,
		ReturnRoutesOnly:   returnRoutesOnly,
	})
}

func (c *DriverClient) TestNetwork(ctx context.Context, home zwave.HomeID, count uint32) error {
	return c.request(ctx, domain.TestNetworkRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
		HomeID:             home,
		Count:              count,
	})
}

func (c *DriverClient) TestNode(ctx context.Context, home zwave.HomeID, node zwave.NodeID, count uint32) error {
	return c.request(ctx, domain.TestNodeRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
		HomeID:             home,
		NodeID:             node,
		Count:              count,
	})
}

func (c *DriverClient) WriteConfigs(ctx context.Context) error {
	return c.request(ctx, domain.WriteConfigsRequest{
		DriverRequestMixIn: actorutil.NewDriverRequestMixIn(),
	})
}

func (c *DriverClient) request(ctx context.Context, req domain.DriverRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Debug("driver request",
		zap.String("request_id", req.Id()),
		zap.String("operation", req.DriverOperation()))

	res, err := c.root.RequestFuture(c.target, req, c.timeout).Result()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", zwave.ErrOperationRejected, req.DriverOperation(), err)
	}
	resp, ok := res.(domain.DriverOperationResponse)
	if !ok {
		return fmt.Errorf("%w: unexpected response %T", zwave.ErrOperationRejected, res)
	}
	if resp.HasResponseError() {
		return resp.ResponseError
	}
	return nil
}

// ensure interface compliance
var _ port.NetworkOperations = (*DriverClient)(nil)
