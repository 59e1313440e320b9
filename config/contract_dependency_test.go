package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgSpec(t *testing.T) {
	assert.Equal(t, ArgSpec{Kind: ArgStep, Value: "worldIDRouterMock"}, ParseArgSpec("${worldIDRouterMock}"))
	assert.Equal(t, ArgSpec{Kind: ArgConfig, Value: "groupId"}, ParseArgSpec("${config.groupId}"))
	assert.Equal(t, Literal("42"), ParseArgSpec("42"))
	assert.Equal(t, Literal("${unterminated"), ParseArgSpec("${unterminated"))

	for _, s := range []string{"${a}", "${config.b}", "plain"} {
		assert.Equal(t, s, ParseArgSpec(s).String())
	}
}

func TestArgSpecJSON(t *testing.T) {
	var args []ArgSpec
	require.NoError(t, json.Unmarshal([]byte(`["${lib}", {"kind":"config","value":"groupId"}, {"value":"7"}]`), &args))
	assert.Equal(t, []ArgSpec{FromStep("lib"), FromConfig(KeyGroupID), Literal("7")}, args)

	out, err := json.Marshal(args)
	require.NoError(t, err)
	assert.JSONEq(t, `["${lib}", "${config.groupId}", "7"]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`[{"kind":"bogus","value":"x"}]`), &args))
}

func TestStepKeysAndDependencies(t *testing.T) {
	s := Step{
		Name:      "WorldIDRouterMock",
		Libraries: []string{"semaphorePairing"},
		Args:      []ArgSpec{FromStep("semaphorePairing"), FromStep("other"), FromConfig(KeyGroupID)},
	}
	assert.Equal(t, "worldIDRouterMockAddress", s.AddressKey())
	assert.Equal(t, "worldIDRouterMockTxHash", s.TxHashKey())
	assert.Equal(t, []string{"semaphorePairing", "other"}, s.Dependencies())
}

func TestValidatePlan(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
	}{
		{"empty", nil},
		{"no name", []Step{{Contract: "A"}}},
		{"no contract", []Step{{Name: "a"}}},
		{"duplicate", []Step{{Name: "a", Contract: "A"}, {Name: "a", Contract: "A"}}},
		{"key collision", []Step{{Name: "a", Contract: "A"}, {Name: "A", Contract: "A"}}},
		{"self", []Step{{Name: "a", Contract: "A", Libraries: []string{"a"}}}},
		{"later dependency", []Step{{Name: "a", Contract: "A", Args: []ArgSpec{FromStep("b")}}, {Name: "b", Contract: "B"}}},
		{"unknown dependency", []Step{{Name: "a", Contract: "A", Libraries: []string{"zzz"}}}},
		{"config without key", []Step{{Name: "a", Contract: "A", Args: []ArgSpec{{Kind: ArgConfig}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlan(&Plan{Name: "p", Steps: tt.steps})
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestGetDeploymentOrder(t *testing.T) {
	steps := []Step{
		{Name: "airdrop", Contract: "WorldIDAirdrop", Args: []ArgSpec{FromStep("router")}},
		{Name: "router", Contract: "WorldIDRouterMock", Libraries: []string{"pairing"}},
		{Name: "pairing", Contract: "Pairing"},
	}
	ordered, err := GetDeploymentOrder(steps)
	require.NoError(t, err)
	names := []string{ordered[0].Name, ordered[1].Name, ordered[2].Name}
	assert.Equal(t, []string{"pairing", "router", "airdrop"}, names)

	_, err = GetDeploymentOrder([]Step{
		{Name: "a", Contract: "A", Libraries: []string{"b"}},
		{Name: "b", Contract: "B", Libraries: []string{"a"}},
	})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	body := `{
		"name": "custom",
		"keys": ["groupId"],
		"steps": [
			{"name": "airdrop", "contract": "WorldIDMultiAirdrop", "args": ["${router}"]},
			{"name": "router", "contract": "WorldIDRouterMock", "libraries": ["pairing"]},
			{"name": "pairing", "contract": "Pairing"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", plan.Name)
	assert.Equal(t, "pairing", plan.Steps[0].Name)
	assert.Equal(t, "airdrop", plan.Steps[2].Name)
	assert.Equal(t, []Key{KeyGroupID}, plan.RequiredKeys())

	_, err = LoadPlan(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestResolveArgs(t *testing.T) {
	plan := &Plan{Steps: []Step{
		{Name: "router", Contract: "R"},
		{Name: "airdrop", Contract: "A", Args: []ArgSpec{FromStep("router"), FromConfig(KeyGroupID), Literal("x")}},
	}}
	step := plan.Steps[1]

	args, err := ResolveArgs(step, Record{"routerAddress": "0x11", "groupId": "3"}, plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x11", "3", "x"}, args)

	_, err = ResolveArgs(step, Record{"groupId": "3"}, plan)
	assert.Error(t, err)

	_, err = ResolveArgs(step, Record{"routerAddress": "0x11"}, plan)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestBuiltinPlansAreValid(t *testing.T) {
	names := BuiltinPlanNames()
	assert.Equal(t, []string{PlanAirdrop, PlanMultiAirdrop, PlanMockAirdrop, PlanMockMultiAirdrop}, names)

	for _, name := range names {
		plan, err := BuiltinPlan(name)
		require.NoError(t, err)
		assert.NoError(t, ValidatePlan(plan), name)
	}

	mock, err := BuiltinPlan(PlanMockAirdrop)
	require.NoError(t, err)
	assert.Equal(t, []string{"semaphorePairing", "worldIDRouterMock", "mockWorldIDAirdrop"},
		[]string{mock.Steps[0].Name, mock.Steps[1].Name, mock.Steps[2].Name})

	_, err = BuiltinPlan("nope")
	assert.Error(t, err)
}

func TestBuiltinPlanIsFreshCopy(t *testing.T) {
	a, _ := BuiltinPlan(PlanMockAirdrop)
	a.Steps[0].Name = "mutated"
	b, _ := BuiltinPlan(PlanMockAirdrop)
	assert.Equal(t, "semaphorePairing", b.Steps[0].Name)
}
