package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/satchel/internal/inventory"
	"github.com/cory-johannsen/satchel/internal/scenario"
)

func init() {
	color.NoColor = true
}

func TestPrintResults(t *testing.T) {
	sc := &scenario.Scenario{Steps: []scenario.Step{{}, {Fail: true}, {}, {Fail: true}}}
	results := []scenario.StepResult{
		{Index: 0, Op: "add", Detail: "added 3/3 gem"},
		{Index: 1, Op: "remove", Name: "overdraw", Err: errors.New("rejected")},
		{Index: 2, Op: "craft", Err: errors.New("insufficient")},
		{Index: 3, Op: "swap", Detail: "swapped"},
	}
	var buf bytes.Buffer
	printResults(&buf, sc, results)

	out := buf.String()
	assert.Contains(t, out, "  ok    0 add: added 3/3 gem\n")
	assert.Contains(t, out, "  deny  1 remove (overdraw): rejected\n")
	assert.Contains(t, out, "  FAIL  2 craft: insufficient\n")
	assert.Contains(t, out, "  FAIL  3 swap: succeeded, expected rejection\n")
}

func TestPrintInventories(t *testing.T) {
	inv, err := inventory.New(2, inventory.WithID("pack"))
	require.NoError(t, err)
	_, err = inv.Add(inventory.MustItemType("gem", "Gem"), 4, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	printInventories(&buf, []*inventory.Inventory{inv})
	assert.Equal(t, "pack (2 slots, 1 empty)\n  [ 0] Gem              x4\n  [ 1] -\n", buf.String())
}

func TestPrintHeader(t *testing.T) {
	var buf bytes.Buffer
	printHeader(&buf, &scenario.Scenario{})
	assert.Equal(t, "== (unnamed scenario) ==\n", buf.String())
}

func TestLoadRuleSets(t *testing.T) {
	n, err := loadRuleSets(nil, t.TempDir()+"/missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}
