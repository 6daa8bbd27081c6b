package zwave

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

type networkFile struct {
	HomeID string     `yaml:"home_id"`
	Nodes  []nodeFile `yaml:"nodes"`
}

type nodeFile struct {
	ID           NodeID      `yaml:"id"`
	Name         string      `yaml:"name,omitempty"`
	Manufacturer string      `yaml:"manufacturer,omitempty"`
	Product      string      `yaml:"product,omitempty"`
	Type         string      `yaml:"type,omitempty"`
	Values       []valueFile `yaml:"values,omitempty"`
}

type valueFile struct {
	ID      string `yaml:"id"`
	Label   string `yaml:"label,omitempty"`
	Units   string `yaml:"units,omitempty"`
	Content string `yaml:"content"`
}

func loadNetworkFiles(dir string) (map[HomeID]*simNetwork, error) {
	networks := make(map[HomeID]*simNetwork)
	if dir == "" {
		return networks, nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "zwcfg_0x*.yaml"))
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		nw, err := readNetworkFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		networks[nw.home] = nw
	}
	return networks, nil
}

func readNetworkFile(path string) (*simNetwork, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f networkFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	home, err := ParseHomeID(f.HomeID)
	if err != nil {
		return nil, err
	}
	nw := &simNetwork{
		home:   home,
		nodes:  make(map[NodeID]Node),
		values: make(map[ValueID]Value),
	}
	for _, n := range f.Nodes {
		nw.nodes[n.ID] = Node{
			HomeID:       home,
			NodeID:       n.ID,
			Name:         n.Name,
			Manufacturer: n.Manufacturer,
			Product:      n.Product,
			Type:         n.Type,
		}
		for _, v := range n.Values {
			packed, err := ParsePackedID(v.ID)
			if err != nil {
				return nil, err
			}
			id := ValueID{HomeID: home, ID: packed}
			if id.NodeID() != n.ID {
				return nil, fmt.Errorf("value %s does not belong to node %d", v.ID, n.ID)
			}
			nw.values[id] = Value{ID: id, Label: v.Label, Units: v.Units, Content: v.Content}
		}
	}
	return nw, nil
}

func writeNetworkFile(dir string, nw *simNetwork) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f := networkFile{HomeID: "0x" + nw.home.String()}
	byNode := make(map[NodeID][]Value)
	for _, v := range nw.values {
		byNode[v.ID.NodeID()] = append(byNode[v.ID.NodeID()], v)
	}
	for _, id := range nw.sortedNodeIDs() {
		n := nw.nodes[id]
		values := byNode[id]
		sort.Slice(values, func(i, j int) bool { return values[i].ID.Compare(values[j].ID) < 0 })
		nf := nodeFile{ID: id, Name: n.Name, Manufacturer: n.Manufacturer, Product: n.Product, Type: n.Type}
		for _, v := range values {
			nf.Values = append(nf.Values, valueFile{
				ID:      fmt.Sprintf("%016x", v.ID.ID),
				Label:   v.Label,
				Units:   v.Units,
				Content: v.Content,
			})
		}
		f.Nodes = append(f.Nodes, nf)
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	return os.WriteFile(networkFileName(dir, nw.home), data, 0o644)
}
