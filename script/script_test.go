package script

import (
	"strings"
	"testing"

	"github.com/jshufro/componentgen/candid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetwork(t *testing.T) {
	for _, n := range Networks {
		parsed, err := ParseNetwork(string(n))
		require.NoError(t, err)
		assert.Equal(t, n, parsed)
	}
	_, err := ParseNetwork("mainnet")
	assert.Error(t, err)

	assert.Equal(t, "Production", NetworkIC.Env())
	assert.Equal(t, "LocalDevelopment", NetworkLocal.Env())
}

func TestLocalScript(t *testing.T) {
	out, err := Generate(Script{
		Label:   "total_supply",
		Network: NetworkLocal,
		Setup: []candid.Value{candid.RecordValue{Fields: []candid.FieldValue{
			{Name: "target", Value: candid.TextValue("0x779877A7B0D9E8603169DdbD7836e478b4624789")},
			{Name: "chain_id", Value: candid.Nat64Value(11155111)},
		}}},
		Timer: &Timer{Interval: 3600, Delay: 10},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "#!/bin/bash", lines[0])
	assert.Equal(t, []string{
		`dfx canister call total_supply init_in '(variant { LocalDevelopment })'`,
		`dfx canister call total_supply setup "(record { target = \"0x779877A7B0D9E8603169DdbD7836e478b4624789\"; chain_id = 11155111 : nat64 })"`,
		`dfx canister call total_supply set_task '(3600 : nat32, 10 : nat32)'`,
	}, lines[len(lines)-3:])
	assert.NotContains(t, out, "--network")
	assert.NotContains(t, out, "set -e")
}

func TestICScriptResolvesNames(t *testing.T) {
	target, err := candid.ParsePrincipal("rrkah-fqaaa-aaaaa-aaaaq-cai")
	require.NoError(t, err)

	out, err := Generate(Script{
		Label:   "icp_snapshot",
		Network: NetworkIC,
		Setup: []candid.Value{candid.RecordValue{Fields: []candid.FieldValue{
			{Name: "target", Value: CanisterRef{Name: "total_supply"}},
			{Name: "lens_targets", Value: candid.Some(candid.VecValue{
				Elem:   &candid.Prim{Name: candid.Principal},
				Values: []candid.Value{CanisterRef{Name: "usdc_balances"}, candid.PrincipalValue(target)},
			})},
		}}},
		Timer: &Timer{Interval: 600},
	})
	require.NoError(t, err)

	assert.Contains(t, out, `dfx canister --network ic call icp_snapshot init_in '(variant { Production })'`)
	assert.Contains(t, out, `dfx canister --network ic call icp_snapshot setup "(record { `+
		`target = principal \"$(dfx canister --network ic id total_supply)\"; `+
		`lens_targets = opt vec { principal \"$(dfx canister --network ic id usdc_balances)\"; principal \"rrkah-fqaaa-aaaaa-aaaaq-cai\" } })"`)
	assert.Contains(t, out, `set_task '(600 : nat32, 0 : nat32)'`)
}

func TestScriptWithoutSetupOrTimer(t *testing.T) {
	out, err := Generate(Script{Label: "total_balance", Network: NetworkLocal})
	require.NoError(t, err)
	assert.Contains(t, out, "init_in")
	assert.NotContains(t, out, "setup")
	assert.NotContains(t, out, "set_task")
}

func TestSetupEscaping(t *testing.T) {
	out := setupArgument(NetworkLocal, []candid.Value{candid.TextValue("$HOME `id` \"q\" \\")})
	assert.Equal(t, `(\"\$HOME \`+"`"+`id\`+"`"+` \\\"q\\\" \\\\\")`, out)
}

func TestScriptErrors(t *testing.T) {
	_, err := Generate(Script{Network: NetworkLocal})
	assert.Error(t, err)
	_, err = Generate(Script{Label: "x", Network: "mainnet"})
	assert.Error(t, err)
}

func TestCanisterRefString(t *testing.T) {
	assert.Equal(t, `principal "$(dfx canister id total_supply)"`, CanisterRef{Name: "total_supply"}.String())
}
