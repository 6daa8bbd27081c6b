package domain

import (
	"fmt"

	"github.com/berfenger/zwconsole/pkg/zwave"
)

// DriverRequest

type DriverRequest interface {
	ActorRequest
	DriverOperation() string
	Id() string
}

type DriverRequestMixIn struct {
	ActorRequestMixIn
	RequestId string
}

func (r DriverRequestMixIn) Id() string {
	return r.RequestId
}

// DriverOperationResponse reports whether the driver accepted a request.
// Acceptance says nothing about the outcome, which arrives later as
// notifications.
type DriverOperationResponse struct {
	ActorResponseMixIn
	RequestId string
	Operation string
}

// Driver commands

type AddNodeRequest struct {
	DriverRequestMixIn
	HomeID zwave.HomeID
	Secure bool
}

type RemoveNodeRequest struct {
	DriverRequestMixIn
	HomeID zwave.HomeID
}

type SetValueRequest struct {
	DriverRequestMixIn
	ValueID zwave.ValueID
	Value   string
}

type HealNetworkRequest struct {
	DriverRequestMixIn
	HomeID           zwave.HomeID
	ReturnRoutesOnly bool
}

type HealNodeRequest struct {
	DriverRequestMixIn
	HomeID           zwave.HomeID
	NodeID           zwave.NodeID
	ReturnRoutesOnly bool
}

type TestNetworkRequest struct {
	DriverRequestMixIn
	HomeID zwave.HomeID
	Count  uint32
}

type TestNodeRequest struct {
	DriverRequestMixIn
	HomeID zwave.HomeID
	NodeID zwave.NodeID
	Count  uint32
}

type WriteConfigsRequest struct {
	DriverRequestMixIn
}

func (r AddNodeRequest) DriverOperation() string {
	return fmt.Sprintf("add-node home=%s secure=%t", r.HomeID, r.Secure)
}

func (r RemoveNodeRequest) DriverOperation() string {
	return fmt.Sprintf("remove-node home=%s", r.HomeID)
}

func (r SetValueRequest) DriverOperation() string {
	return fmt.Sprintf("set value=%s", r.ValueID)
}

func (r HealNetworkRequest) DriverOperation() string {
	return fmt.Sprintf("heal-network home=%s return_routes_only=%t", r.HomeID, r.ReturnRoutesOnly)
}

func (r HealNodeRequest) DriverOperation() string {
	return fmt.Sprintf("heal-node home=%s node=%d return_routes_only=%t", r.HomeID, r.NodeID, r.ReturnRoutesOnly)
}

func (r TestNetworkRequest) DriverOperation() string {
	return fmt.Sprintf("test-network home=%s count=%d", r.HomeID, r.Count)
}

func (r TestNodeRequest) DriverOperation() string {
	return fmt.Sprintf("test-node home=%s node=%d count=%d", r.HomeID, r.NodeID, r.Count)
}

func (r WriteConfigsRequest) DriverOperation() string {
	return "write-configs"
}

// ensure interface compliance
var (
	_ DriverRequest = AddNodeRequest{}
	_ DriverRequest = RemoveNodeRequest{}
	_ DriverRequest = SetValueRequest{}
	_ DriverRequest = HealNetworkRequest{}
	_ DriverRequest = HealNodeRequest{}
	_ DriverRequest = TestNetworkRequest{}
	_ DriverRequest = TestNodeRequest{}
	_ DriverRequest = WriteConfigsRequest{}
)
