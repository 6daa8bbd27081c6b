// Package console implements the interactive command loop: it renders
// NetworkState snapshots and issues operation requests to the driver.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/berfenger/zwconsole/internal/core/port"
	"github.com/berfenger/zwconsole/internal/core/state"
	"github.com/berfenger/zwconsole/pkg/zwave"

	"github.com/carlmjohnson/versioninfo"
	"github.com/chzyer/readline"
	"go.uber.org/zap"
)

var (
	ErrUnknownValueID = errors.New("unknown ValueID")
	ErrConsoleIO      = errors.New("console input failed")
)

// LineReader yields one input line per call. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

type Dispatcher struct {
	state  *state.NetworkState
	ops    port.NetworkOperations
	out    io.Writer
	logger *zap.Logger
}

func NewDispatcher(st *state.NetworkState, ops port.NetworkOperations, out io.Writer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		state:  st,
		ops:    ops,
		out:    out,
		logger: logger.With(zap.String("component", "console")),
	}
}

// Run reads and executes lines until an exit command or end of input. An
// input failure other than EOF ends the loop with ErrConsoleIO.
func (d *Dispatcher) Run(ctx context.Context, reader LineReader) error {
	defer reader.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := reader.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrConsoleIO, err)
		}

		if quit := d.Execute(ctx, line); quit {
			return nil
		}
	}
}

// Execute runs a single command line and reports whether the loop should end.
func (d *Dispatcher) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		d.printHelp()
	case "version":
		fmt.Fprintln(d.out, versioninfo.Short())
	case "controllers":
		d.printControllers()
	case "nodes":
		d.printNodes()
	case "values":
		d.cmdValues(args)
	case "debug":
		d.cmdDebug(args)
	case "add-node":
		d.cmdAddNode(ctx, args)
	case "remove-node":
		d.cmdRemoveNode(ctx, args)
	case "set":
		d.cmdSet(ctx, args)
	case "heal-network":
		d.cmdHealNetwork(ctx, args)
	case "heal-node":
		d.cmdHealNode(ctx, args)
	case "test-network":
		d.cmdTestNetwork(ctx, args)
	case "test-node":
		d.cmdTestNode(ctx, args)
	case "write_config":
		d.report("write_config", d.ops.WriteConfigs(ctx))
	default:
		fmt.Fprintf(d.out, "unrecognized command: %s\n", cmd)
	}
	return false
}

func (d *Dispatcher) cmdValues(args []string) {
	switch {
	case len(args) == 0:
		d.printValues(false)
	case len(args) == 1 && args[0] == "all":
		d.printValues(true)
	default:
		d.usage("values [all]")
	}
}

func (d *Dispatcher) cmdDebug(args []string) {
	if len(args) != 1 {
		d.usage("debug controllers|nodes|values")
		return
	}
	switch args[0] {
	case "controllers":
		fmt.Fprintf(d.out, "%+v\n", d.state.Controllers())
	case "nodes":
		fmt.Fprintf(d.out, "%+v\n", d.state.NodesByController())
	case "values":
		fmt.Fprintf(d.out, "%+v\n", d.state.Values())
	default:
		d.usage("debug controllers|nodes|values")
	}
}

func (d *Dispatcher) cmdAddNode(ctx context.Context, args []string) {
	const usage = "add-node <home_id> [secure]"
	if len(args) < 1 || len(args) > 2 {
		d.usage(usage)
		return
	}
	home, err := zwave.ParseHomeID(args[0])
	if err != nil {
		d.usage(usage)
		return
	}
	secure := false
	if len(args) == 2 {
		if args[1] != "secure" {
			d.usage(usage)
			return
		}
		secure = true
	}
	d.report("add-node", d.ops.AddNode(ctx, home, secure))
}

func (d *Dispatcher) cmdRemoveNode(ctx context.Context, args []string) {
	const usage = "remove-node <home_id>"
	if len(args) != 1 {
		d.usage(usage)
		return
	}
	home, err := zwave.ParseHomeID(args[0])
	if err != nil {
		d.usage(usage)
		return
	}
	d.report("remove-node", d.ops.RemoveNode(ctx, home))
}

func (d *Dispatcher) cmdSet(ctx context.Context, args []string) {
	const usage = "set <home_id> <value_id> <value>"
	if len(args) != 3 {
		d.usage(usage)
		return
	}
	home, err := zwave.ParseHomeID(args[0])
	if err != nil {
		d.usage(usage)
		return
	}
	packed, err := zwave.ParsePackedID(args[1])
	if err != nil {
		d.usage(usage)
		return
	}
	id := zwave.ValueID{HomeID: home, ID: packed}
	if _, ok := d.state.Value(id); !ok {
		fmt.Fprintf(d.out, "%s: %s\n", ErrUnknownValueID, id)
		return
	}
	d.report("set", d.ops.SetValue(ctx, id, args[2]))
}

func (d *Dispatcher) cmdHealNetwork(ctx context.Context, args []string) {
	const usage = "heal-network <home_id> [full]"
	if len(args) < 1 || len(args) > 2 {
		d.usage(usage)
		return
	}
	home, err := zwave.ParseHomeID(args[0])
	if err != nil {
		d.usage(usage)
		return
	}
	returnRoutesOnly, ok := parseHealMode(args[1:])
	if !ok {
		d.usage(usage)
		return
	}
	d.report("heal-network", d.ops.HealNetwork(ctx, home, returnRoutesOnly))
}

func (d *Dispatcher) cmdHealNode(ctx context.Context, args []string) {
	const usage = "heal-node <home_id> <node_id> [full]"
	if len(args) < 2 || len(args) > 3 {
		d.usage(usage)
		return
	}
	home, err := zwave.ParseHomeID(args[0])
	if err != nil {
		d.usage(usage)
		return
	}
	node, err := zwave.ParseNodeID(args[1])
	if err != nil {
		d.usage(usage)
		return
	}
	returnRoutesOnly, ok := parseHealMode(args[2:])
	if !ok {
		d.usage(usage)
		return
	}
	d.report("heal-node", d.ops.HealNode(ctx, home, node, returnRoutesOnly))
}

func (d *Dispatcher) cmdTestNetwork(ctx context.Context, args []string) {
	const usage = "test-network <home_id> <count>"
	if len(args) != 2 {
		d.usage(usage)
		return
	}
	home, err := zwave.ParseHomeID(args[0])
	if err != nil {
		d.usage(usage)
		return
	}
	count, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		d.usage(usage)
		return
	}
	d.report("test-network", d.ops.TestNetwork(ctx, home, uint32(count)))
}

func (d *Dispatcher) cmdTestNode(ctx context.Context, args []string) {
	const usage = "test-node <home_id> <node_id> <count>"
	if len(args) != 3 {
		d.usage(usage)
		return
	}
	home, err := zwave.ParseHomeID(args[0])
	if err != nil {
		d.usage(usage)
		return
	}
	node, err := zwave.ParseNodeID(args[1])
	if err != nil {
		d.usage(usage)
		return
	}
	count, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		d.usage(usage)
		return
	}
	d.report("test-node", d.ops.TestNode(ctx, home, node, uint32(count)))
}

// parseHealMode maps the optional trailing "full" token to returnRoutesOnly.
func parseHealMode(rest []string) (bool, bool) {
	if len(rest) == 0 {
		return true, true
	}
	if len(rest) == 1 && rest[0] == "full" {
		return false, true
	}
	return false, false
}

func (d *Dispatcher) usage(syntax string) {
	fmt.Fprintf(d.out, "usage: %s\n", syntax)
}

func (d *Dispatcher) report(op string, err error) {
	if err != nil {
		d.logger.Info("operation rejected", zap.String("operation", op), zap.Error(err))
		fmt.Fprintf(d.out, "operation rejected: %v\n", err)
		return
	}
	fmt.Fprintf(d.out, "%s requested\n", op)
}
