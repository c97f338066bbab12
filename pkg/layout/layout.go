// Package layout is the definition both firmware images are built
// against: the shared RAM window, the queues inside it and the
// assignment of logical signals to IPC channels.
package layout

import (
	"fmt"
	"io/ioutil"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/openeeg/headband.go/pkg/fault"
	"github.com/openeeg/headband.go/pkg/memguard"
	"github.com/openeeg/headband.go/pkg/ring"
)

// NumChannels is the number of IPC channels of the peripheral.
const NumChannels = 16

// DefaultQueue is the name of the queue carrying radio records.
const DefaultQueue = "ble"

// ErrInvalidLayout indicates a layout that fails validation.
var ErrInvalidLayout = fault.New(fault.Fatal, "invalid layout")

// Core identifies a core of the chip.
type Core int

// Cores.
const (
	App Core = iota
	Net
)

func (c Core) String() string {
	switch c {
	case App:
		return "app"
	case Net:
		return "net"
	default:
		return fmt.Sprintf("core%d", int(c))
	}
}

// ParseCore parses a core name.
func ParseCore(s string) (Core, error) {
	switch strings.ToLower(s) {
	case "app", "a", "application":
		return App, nil
	case "net", "n", "network":
		return Net, nil
	}
	return 0, fmt.Errorf("unknown core %q, expected app or net", s)
}

// Window is an address range in RAM.
type Window struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

// Range converts to memguard.Range.
func (w Window) Range() memguard.Range {
	return memguard.Range{Start: w.Start, End: w.End}
}

// Queue places one ring inside the shared window.
type Queue struct {
	Name string `yaml:"name"`
	// Offset is relative to the start of the shared window.
	Offset   uint32 `yaml:"offset"`
	Capacity uint32 `yaml:"capacity"`
}

// Channels assigns logical signals to IPC channels.
type Channels struct {
	// DataAvailable is raised by the net core after enqueuing.
	DataAvailable int `yaml:"data_available"`
	// PeerReady is raised by the net core once booted.
	PeerReady int `yaml:"peer_ready"`
	// BootAck is raised by the app core on accepting PeerReady.
	BootAck int `yaml:"boot_ack"`
}

// Layout is the complete shared definition.
type Layout struct {
	RAMBase     uint32   `yaml:"ram_base"`
	RAMSize     uint32   `yaml:"ram_size"`
	Granularity uint32   `yaml:"granularity"`
	Shared      Window   `yaml:"shared"`
	Queues      []Queue  `yaml:"queues"`
	Channels    Channels `yaml:"channels"`
}

// Default returns the production layout.
func Default() *Layout {
	return &Layout{
		RAMBase:     memguard.RAMBase,
		RAMSize:     memguard.RAMSize,
		Granularity: memguard.Granularity,
		Shared:      Window{Start: memguard.SharedStart, End: memguard.SharedEnd},
		Queues: []Queue{
			{Name: DefaultQueue, Offset: 0, Capacity: 1024},
		},
		Channels: Channels{DataAvailable: 0, PeerReady: 1, BootAck: 2},
	}
}

// Parse decodes a YAML layout and validates it. Fields absent from
// the document keep their production values.
func Parse(data []byte) (*Layout, error) {
	l := Default()
	if err := yaml.UnmarshalStrict(data, l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Load reads a layout file.
func Load(fn string) (*Layout, error) {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Marshal encodes the layout as YAML.
func (l *Layout) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidLayout, fmt.Sprintf(format, args...))
}

// Validate checks the layout is usable by both images.
func (l *Layout) Validate() error {
	g := l.Granularity
	if g == 0 || g&(g-1) != 0 {
		return invalid("granularity 0x%x is not a power of two", g)
	}
	if l.RAMBase%g != 0 || l.RAMSize%g != 0 || l.RAMSize == 0 {
		return invalid("RAM 0x%08x+0x%x not aligned to 0x%x", l.RAMBase, l.RAMSize, g)
	}
	ramEnd := uint64(l.RAMBase) + uint64(l.RAMSize)
	if ramEnd >= 1<<32 {
		return invalid("RAM exceeds address space")
	}
	s := l.Shared
	if s.Start >= s.End || s.Start < l.RAMBase || uint64(s.End) > ramEnd {
		return invalid("shared window %v outside RAM", s.Range())
	}
	if s.Start%g != 0 || s.End%g != 0 {
		return invalid("shared window %v not aligned to 0x%x", s.Range(), g)
	}
	if len(l.Queues) == 0 {
		return invalid("no queues")
	}
	type span struct {
		name       string
		start, end uint64
	}
	var spans []span
	for _, q := range l.Queues {
		if q.Name == "" {
			return invalid("queue without name")
		}
		if !ring.ValidCapacity(q.Capacity) {
			return invalid("queue %q capacity %d is not a power of two", q.Name, q.Capacity)
		}
		if q.Offset%ring.SlotSize != 0 {
			return invalid("queue %q offset 0x%x not 8-byte aligned", q.Name, q.Offset)
		}
		sp := span{name: q.Name, start: uint64(q.Offset), end: uint64(q.Offset) + ring.Size(q.Capacity)}
		if sp.end > uint64(s.End-s.Start) {
			return invalid("queue %q exceeds shared window", q.Name)
		}
		for _, other := range spans {
			if other.name == sp.name {
				return invalid("duplicated queue %q", q.Name)
			}
			if sp.start < other.end && other.start < sp.end {
				return invalid("queue %q overlaps %q", q.Name, other.name)
			}
		}
		spans = append(spans, sp)
	}
	chs := []int{l.Channels.DataAvailable, l.Channels.PeerReady, l.Channels.BootAck}
	for i, ch := range chs {
		if ch < 0 || ch >= NumChannels {
			return invalid("channel %d out of range", ch)
		}
		for _, other := range chs[:i] {
			if other == ch {
				return invalid("channel %d assigned twice", ch)
			}
		}
	}
	return nil
}

// Queue finds a queue by name.
func (l *Layout) Queue(name string) (Queue, bool) {
	for _, q := range l.Queues {
		if q.Name == name {
			return q, true
		}
	}
	return Queue{}, false
}

// QueueAddr returns the absolute address of a queue and its size.
func (l *Layout) QueueAddr(q Queue) (base, size uint32) {
	return l.Shared.Start + q.Offset, uint32(ring.Size(q.Capacity))
}
