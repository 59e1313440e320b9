package config

import (
	"fmt"
	"sort"
)

const (
	PlanAirdrop          = "deploy-airdrop"
	PlanMultiAirdrop     = "deploy-multi-airdrop"
	PlanMockAirdrop      = "mock-airdrop"
	PlanMockMultiAirdrop = "mock-multi-airdrop"
)

// Contract artifact names.
const (
	ContractWorldIDAirdrop      = "WorldIDAirdrop"
	ContractWorldIDMultiAirdrop = "WorldIDMultiAirdrop"
	ContractWorldIDRouterMock   = "WorldIDRouterMock"
	ContractPairing             = "Pairing"
)

// The mock router links the Pairing library; both are shared between the
// mock plans so a second mock plan reuses the already deployed router.
var mockRouterSteps = []Step{
	{Name: "semaphorePairing", Contract: ContractPairing},
	{Name: "worldIDRouterMock", Contract: ContractWorldIDRouterMock, Libraries: []string{"semaphorePairing"}},
}

func airdropArgs(router ArgSpec) []ArgSpec {
	return []ArgSpec{
		router,
		FromConfig(KeyGroupID),
		FromConfig(KeyActionID),
		FromConfig(KeyERC20Address),
		FromConfig(KeyHolderAddress),
		FromConfig(KeyAirdropAmount),
	}
}

func keyNames(keys ...Key) []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name
	}
	return names
}

var builtinPlans = map[string]func() *Plan{
	PlanAirdrop: func() *Plan {
		return &Plan{
			Name:        PlanAirdrop,
			Description: "Interactively deploys the WorldIDAirdrop contract.",
			Keys:        keyNames(append([]Key{KeyWorldIDRouter}, AirdropKeys...)...),
			Steps: []Step{
				{Name: "worldIDAirdrop", Contract: ContractWorldIDAirdrop, Args: airdropArgs(FromConfig(KeyWorldIDRouter))},
			},
		}
	},
	PlanMultiAirdrop: func() *Plan {
		return &Plan{
			Name:        PlanMultiAirdrop,
			Description: "Interactively deploys the WorldIDMultiAirdrop contract.",
			Keys:        keyNames(KeyWorldIDRouter),
			Steps: []Step{
				{Name: "worldIDMultiAirdrop", Contract: ContractWorldIDMultiAirdrop, Args: []ArgSpec{FromConfig(KeyWorldIDRouter)}},
			},
		}
	},
	PlanMockAirdrop: func() *Plan {
		steps := append([]Step{}, mockRouterSteps...)
		steps = append(steps, Step{
			Name:     "mockWorldIDAirdrop",
			Contract: ContractWorldIDAirdrop,
			Args:     airdropArgs(FromStep("worldIDRouterMock")),
		})
		return &Plan{
			Name:        PlanMockAirdrop,
			Description: "Deploys WorldIDRouterMock alongside WorldIDAirdrop for testing.",
			Keys:        keyNames(AirdropKeys...),
			Steps:       steps,
		}
	},
	PlanMockMultiAirdrop: func() *Plan {
		steps := append([]Step{}, mockRouterSteps...)
		steps = append(steps, Step{
			Name:     "mockWorldIDMultiAirdrop",
			Contract: ContractWorldIDMultiAirdrop,
			Args:     []ArgSpec{FromStep("worldIDRouterMock")},
		})
		return &Plan{
			Name:        PlanMockMultiAirdrop,
			Description: "Deploys WorldIDRouterMock alongside WorldIDMultiAirdrop for testing.",
			Steps:       steps,
		}
	},
}

// BuiltinPlan returns a fresh copy of the named built-in plan.
func BuiltinPlan(name string) (*Plan, error) {
	build, ok := builtinPlans[name]
	if !ok {
		return nil, fmt.Errorf("unknown plan %q", name)
	}
	return build(), nil
}

// BuiltinPlanNames lists the built-in plans in sorted order.
func BuiltinPlanNames() []string {
	names := make([]string, 0, len(builtinPlans))
	for name := range builtinPlans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
