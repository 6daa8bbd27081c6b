package console

import (
	"fmt"

	"github.com/berfenger/zwconsole/pkg/zwave"
)

const helpText = `commands:
  controllers                          list controllers
  nodes                                list nodes per controller
  values [all]                         list user values, or every genre
  debug controllers|nodes|values       dump internal collections
  add-node <home_id> [secure]          start node inclusion
  remove-node <home_id>                start node exclusion
  set <home_id> <value_id> <value>     set a known value
  heal-network <home_id> [full]        heal every node
  heal-node <home_id> <node_id> [full] heal a single node
  test-network <home_id> <count>       send test frames to every node
  test-node <home_id> <node_id> <count>
  write_config                         persist driver configuration
  version
  exit | quit | q`

func (d *Dispatcher) printHelp() {
	fmt.Fprintln(d.out, helpText)
}

func (d *Dispatcher) printControllers() {
	for _, home := range d.state.Controllers() {
		fmt.Fprintf(d.out, "controller %s\n", home)
	}
}

func (d *Dispatcher) printNodes() {
	for _, cn := range d.state.NodesByController() {
		fmt.Fprintf(d.out, "controller %s\n", cn.HomeID)
		for _, n := range cn.Nodes {
			fmt.Fprintf(d.out, "  %s\n", formatNode(n))
		}
	}
}

func (d *Dispatcher) printValues(all bool) {
	for _, v := range d.state.Values() {
		if !all && v.Genre() != zwave.GenreUser {
			continue
		}
		fmt.Fprintln(d.out, formatValue(v))
	}
}

func formatNode(n zwave.Node) string {
	return fmt.Sprintf("node %03d %q %s %s (%s)", n.NodeID, n.Name, n.Manufacturer, n.Product, n.Type)
}

func formatValue(v zwave.Value) string {
	content := v.Content
	if v.Units != "" {
		content += " " + v.Units
	}
	return fmt.Sprintf("%s node %03d %-6s %q = %s", v.ID, v.ID.NodeID(), v.Genre(), v.Label, content)
}
