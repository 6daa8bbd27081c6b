package actorutil

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/berfenger/zwconsole/internal/core/domain"
	"github.com/berfenger/zwconsole/internal/mqtt"
	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.PanicLevel, zap.FatalLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToRequest maps a command received on a value set topic
// to a driver request.
func ParsedMQTTCommandToRequest(cmd mqtt.ParsedMQTTCommand) (domain.DriverRequest, error) {
	switch cmd.Command {
	case mqtt.MQTT_COMMAND_SET:
		home, err := zwave.ParseHomeID(cmd.HomeId)
		if err != nil {
			return nil, err
		}
		id, err := zwave.ParsePackedID(cmd.ValueId)
		if err != nil {
			return nil, err
		}
		return domain.SetValueRequest{
			DriverRequestMixIn: NewDriverRequestMixIn(),
			ValueID:            zwave.ValueID{HomeID: home, ID: id},
			Value:              cmd.Payload,
		}, nil
	}
	return nil, fmt.Errorf("unsupported mqtt command %q", cmd.Command)
}
