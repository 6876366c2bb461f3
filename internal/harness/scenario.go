package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/surface"
)

// Scenario is one scripted run against a fresh invoker.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Listeners declares listener names, in order.
	Listeners []string `yaml:"listeners"`

	// Surfaces declares surface names. Every surface stays alive until a
	// destroy step.
	Surfaces []string `yaml:"surfaces,omitempty"`

	// Handles defines named callback handles.
	Handles map[string]HandleSpec `yaml:"handles,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// HandleSpec defines one callback handle.
type HandleSpec struct {
	Listener string   `yaml:"listener"`
	IDs      []string `yaml:"ids"`

	// Surface is optional; without it the handle carries no surface stats.
	Surface string `yaml:"surface,omitempty"`

	// LatchNs is the latch time. Omitted means never latched.
	LatchNs *int64 `yaml:"latch_ns,omitempty"`

	AcquireNs              int64      `yaml:"acquire_ns,omitempty"`
	FrameNumber            uint64     `yaml:"frame_number,omitempty"`
	TransformHint          uint32     `yaml:"transform_hint,omitempty"`
	MaxAcquiredBufferCount uint32     `yaml:"max_acquired_buffer_count,omitempty"`
	PreviousReleaseFence   *FenceSpec `yaml:"previous_release_fence,omitempty"`
	GPUCompositionFence    *FenceSpec `yaml:"gpu_composition_done_fence,omitempty"`
	PreviousReleaseBuffer  uint64     `yaml:"previous_release_buffer_id,omitempty"`
}

// FenceSpec defines a fence. A missing signal time leaves it pending.
type FenceSpec struct {
	Name     string `yaml:"name"`
	SignalNs *int64 `yaml:"signal_ns,omitempty"`
}

func (f *FenceSpec) build() *surface.Fence {
	if f == nil {
		return nil
	}
	if f.SignalNs == nil {
		return surface.NewFence(f.Name)
	}
	return surface.NewSignaledFence(f.Name, *f.SignalNs)
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op       string             `yaml:"op"`
	Listener string             `yaml:"listener,omitempty"`
	IDs      []string           `yaml:"ids,omitempty"`
	Handle   string             `yaml:"handle,omitempty"`
	Handles  []string           `yaml:"handles,omitempty"`
	Jank     []surface.JankData `yaml:"jank,omitempty"`
	Fence    *FenceSpec         `yaml:"fence,omitempty"`
	Surface  string             `yaml:"surface,omitempty"`
}

// Step operations.
const (
	OpStart           = "start"
	OpEnd             = "end"
	OpPending         = "pending"
	OpUnpresented     = "unpresented"
	OpFinalizeCommit  = "finalize_commit"
	OpFinalizePresent = "finalize_present"
	OpPresentFence    = "present_fence"
	OpSend            = "send"
	OpKill            = "kill"
	OpDestroy         = "destroy"
)

// Assertion validates the trace.
type Assertion struct {
	// Type is one of delivered, not_delivered, delivery_count, error.
	Type string `yaml:"type"`

	// Listener is used by delivered, not_delivered and delivery_count.
	Listener string `yaml:"listener,omitempty"`

	// IDs is used by delivered and not_delivered.
	IDs []string `yaml:"ids,omitempty"`

	// Count is used by delivery_count.
	Count int `yaml:"count,omitempty"`

	// Step and Code are used by error. Step is a 0-based step index.
	Step *int   `yaml:"step,omitempty"`
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertDelivered     = "delivered"
	AssertNotDelivered  = "not_delivered"
	AssertDeliveryCount = "delivery_count"
	AssertError         = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and every cross-reference.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Listeners) == 0 {
		return fmt.Errorf("listeners list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	listeners, err := nameSet("listeners", s.Listeners)
	if err != nil {
		return err
	}
	surfaces, err := nameSet("surfaces", s.Surfaces)
	if err != nil {
		return err
	}

	for name, h := range s.Handles {
		if !listeners[h.Listener] {
			return fmt.Errorf("handles.%s: unknown listener %q", name, h.Listener)
		}
		if err := validateIDs(h.IDs); err != nil {
			return fmt.Errorf("handles.%s: %w", name, err)
		}
		if h.Surface != "" && !surfaces[h.Surface] {
			return fmt.Errorf("handles.%s: unknown surface %q", name, h.Surface)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(s, listeners, surfaces, step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(len(s.Steps), listeners, a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(s *Scenario, listeners, surfaces map[string]bool, step Step) error {
	requireListener := func() error {
		if !listeners[step.Listener] {
			return fmt.Errorf("%s: unknown listener %q", step.Op, step.Listener)
		}
		return nil
	}
	requireHandle := func(name string) error {
		if _, ok := s.Handles[name]; !ok {
			return fmt.Errorf("%s: unknown handle %q", step.Op, name)
		}
		return nil
	}

	switch step.Op {
	case OpStart, OpEnd:
		if err := requireListener(); err != nil {
			return err
		}
		if err := validateIDs(step.IDs); err != nil {
			return fmt.Errorf("%s: %w", step.Op, err)
		}
	case OpPending, OpUnpresented:
		return requireHandle(step.Handle)
	case OpFinalizeCommit, OpFinalizePresent:
		if len(step.Handles) == 0 {
			return fmt.Errorf("%s: handles list is required", step.Op)
		}
		for _, name := range step.Handles {
			if err := requireHandle(name); err != nil {
				return err
			}
		}
		if step.Op == OpFinalizeCommit && len(step.Jank) > 0 {
			return fmt.Errorf("%s: jank is only valid for %s", step.Op, OpFinalizePresent)
		}
	case OpPresentFence:
		if step.Fence == nil || step.Fence.Name == "" {
			return fmt.Errorf("%s: fence with a name is required", step.Op)
		}
	case OpSend:
	case OpKill:
		return requireListener()
	case OpDestroy:
		if !surfaces[step.Surface] {
			return fmt.Errorf("%s: unknown surface %q", step.Op, step.Surface)
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateAssertion(steps int, listeners map[string]bool, a Assertion) error {
	switch a.Type {
	case AssertDelivered, AssertNotDelivered:
		if !listeners[a.Listener] {
			return fmt.Errorf("%s: unknown listener %q", a.Type, a.Listener)
		}
		if err := validateIDs(a.IDs); err != nil {
			return fmt.Errorf("%s: %w", a.Type, err)
		}
	case AssertDeliveryCount:
		if !listeners[a.Listener] {
			return fmt.Errorf("%s: unknown listener %q", a.Type, a.Listener)
		}
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative", a.Type)
		}
	case AssertError:
		if a.Step == nil {
			return fmt.Errorf("%s: step is required", a.Type)
		}
		if *a.Step < 0 || *a.Step >= steps {
			return fmt.Errorf("%s: step %d out of range", a.Type, *a.Step)
		}
		if a.Code == "" {
			return fmt.Errorf("%s: code is required", a.Type)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func validateIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("ids list is required and must be non-empty")
	}
	_, err := callback.ParseIDs(ids)
	return err
}

func nameSet(field string, names []string) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return nil, fmt.Errorf("%s: empty name", field)
		}
		if set[n] {
			return nil, fmt.Errorf("%s: duplicate name %q", field, n)
		}
		set[n] = true
	}
	return set, nil
}
