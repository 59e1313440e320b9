package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

type ArgKind string

const (
	ArgLiteral ArgKind = "literal"
	ArgConfig  ArgKind = "config"
	ArgStep    ArgKind = "step"
)

// ArgSpec is one constructor argument: a literal, a record value, or the
// address produced by an earlier step.
type ArgSpec struct {
	Kind  ArgKind `json:"kind"`
	Value string  `json:"value"`
}

func Literal(v string) ArgSpec     { return ArgSpec{Kind: ArgLiteral, Value: v} }
func FromConfig(k Key) ArgSpec     { return ArgSpec{Kind: ArgConfig, Value: k.Name} }
func FromStep(step string) ArgSpec { return ArgSpec{Kind: ArgStep, Value: step} }

// ParseArgSpec reads the template form: ${Step} refers to a prior step's
// address, ${config.key} to a record value, anything else is a literal.
func ParseArgSpec(s string) ArgSpec {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		ref := s[2 : len(s)-1]
		if key, ok := strings.CutPrefix(ref, "config."); ok {
			return ArgSpec{Kind: ArgConfig, Value: key}
		}
		return ArgSpec{Kind: ArgStep, Value: ref}
	}
	return Literal(s)
}

// String renders the argument in template form.
func (a ArgSpec) String() string {
	switch a.Kind {
	case ArgStep:
		return "${" + a.Value + "}"
	case ArgConfig:
		return "${config." + a.Value + "}"
	default:
		return a.Value
	}
}

func (a *ArgSpec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = ParseArgSpec(s)
		return nil
	}

	var obj struct {
		Kind  ArgKind `json:"kind"`
		Value string  `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("argument must be a string or an object with kind and value: %w", err)
	}
	switch obj.Kind {
	case ArgLiteral, ArgConfig, ArgStep:
	case "":
		obj.Kind = ArgLiteral
	default:
		return fmt.Errorf("unknown argument kind %q", obj.Kind)
	}
	*a = ArgSpec{Kind: obj.Kind, Value: obj.Value}
	return nil
}

func (a ArgSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// Step is one contract deployment. Libraries name earlier steps whose
// addresses are linked into this step's bytecode.
type Step struct {
	Name      string    `json:"name"`
	Contract  string    `json:"contract"`
	Libraries []string  `json:"libraries,omitempty"`
	Args      []ArgSpec `json:"args,omitempty"`
}

// AddressKey is the record key holding the deployed address of the step.
func (s Step) AddressKey() string {
	return lowerFirst(s.Name) + "Address"
}

// TxHashKey is the record key holding the deployment transaction hash.
func (s Step) TxHashKey() string {
	return lowerFirst(s.Name) + "TxHash"
}

// Dependencies returns every step this step needs, libraries first.
func (s Step) Dependencies() []string {
	var deps []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}
	for _, lib := range s.Libraries {
		add(lib)
	}
	for _, arg := range s.Args {
		if arg.Kind == ArgStep {
			add(arg.Value)
		}
	}
	return deps
}

// Plan is a named, ordered chain of deployment steps.
type Plan struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keys        []string `json:"keys,omitempty"`
	Steps       []Step   `json:"steps"`
}

// RequiredKeys returns the registry entries for the plan's keys.
func (p *Plan) RequiredKeys() []Key {
	keys := make([]Key, len(p.Keys))
	for i, name := range p.Keys {
		keys[i] = LookupKey(name)
	}
	return keys
}

// LoadPlan reads a plan file and orders its steps by dependency.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if plan.Name == "" {
		plan.Name = strings.TrimSuffix(path, ".json")
	}

	ordered, err := GetDeploymentOrder(plan.Steps)
	if err != nil {
		return nil, err
	}
	plan.Steps = ordered

	if err := ValidatePlan(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ValidatePlan checks that step names are unique and that every dependency
// refers to a step appearing earlier in the sequence.
func ValidatePlan(plan *Plan) error {
	if len(plan.Steps) == 0 {
		return &PlanError{Reason: "no steps"}
	}

	earlier := make(map[string]bool, len(plan.Steps))
	keys := make(map[string]string, len(plan.Steps))
	for _, step := range plan.Steps {
		if step.Name == "" {
			return &PlanError{Reason: "step without a name"}
		}
		if step.Contract == "" {
			return &PlanError{Step: step.Name, Reason: "no contract"}
		}
		if earlier[step.Name] {
			return &PlanError{Step: step.Name, Reason: "duplicate step name"}
		}
		if other, ok := keys[step.AddressKey()]; ok {
			return &PlanError{Step: step.Name, Reason: fmt.Sprintf("record key %s collides with step %s", step.AddressKey(), other)}
		}
		for _, dep := range step.Dependencies() {
			if dep == step.Name {
				return &PlanError{Step: step.Name, Reason: "depends on itself"}
			}
			if !earlier[dep] {
				return &PlanError{Step: step.Name, Reason: fmt.Sprintf("dependency %s is not an earlier step", dep)}
			}
		}
		for _, arg := range step.Args {
			if arg.Kind == ArgConfig && arg.Value == "" {
				return &PlanError{Step: step.Name, Reason: "config argument without a key"}
			}
		}
		earlier[step.Name] = true
		keys[step.AddressKey()] = step.Name
	}
	return nil
}

// GetDeploymentOrder returns steps sorted by dependency order. Steps whose
// dependencies are already satisfied keep their relative order.
func GetDeploymentOrder(steps []Step) ([]Step, error) {
	var ordered []Step
	deployed := make(map[string]bool)

	for len(ordered) < len(steps) {
		progress := false

		for _, step := range steps {
			if deployed[step.Name] {
				continue
			}

			canDeploy := true
			for _, dep := range step.Dependencies() {
				if !deployed[dep] {
					canDeploy = false
					break
				}
			}

			if canDeploy {
				ordered = append(ordered, step)
				deployed[step.Name] = true
				progress = true
			}
		}

		if !progress {
			return nil, &PlanError{Reason: "circular dependency detected or missing dependency"}
		}
	}

	return ordered, nil
}

// ResolveArgs turns a step's argument specs into string values. Prior step
// addresses are read from the record, where confirmed steps are recorded.
func ResolveArgs(step Step, rec Record, plan *Plan) ([]string, error) {
	resolved := make([]string, len(step.Args))

	for i, arg := range step.Args {
		switch arg.Kind {
		case ArgStep:
			dep, ok := plan.Step(arg.Value)
			if !ok {
				return nil, &PlanError{Step: step.Name, Reason: fmt.Sprintf("unknown step %s", arg.Value)}
			}
			address := rec.Get(dep.AddressKey())
			if address == "" {
				return nil, fmt.Errorf("dependency step %s has no recorded address", arg.Value)
			}
			resolved[i] = address
		case ArgConfig:
			value := strings.TrimSpace(rec.Get(arg.Value))
			if value == "" {
				key := LookupKey(arg.Value)
				return nil, &MissingValueError{Key: key.Name, EnvVars: key.EnvVars}
			}
			resolved[i] = value
		default:
			resolved[i] = arg.Value
		}
	}

	return resolved, nil
}

// Step looks up a step by name.
func (p *Plan) Step(name string) (Step, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
