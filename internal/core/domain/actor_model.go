package domain

const (
	ACTOR_ID_MASTER = "master"
	ACTOR_ID_DRIVER = "driver"
	ACTOR_ID_MQTT   = "mqtt"
)

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}
