package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/cory-johannsen/satchel/internal/inventory"
	"github.com/cory-johannsen/satchel/internal/scenario"
)

var (
	titleColor    = color.New(color.FgCyan, color.Bold)
	okColor       = color.New(color.FgGreen)
	expectedColor = color.New(color.FgYellow)
	failColor     = color.New(color.FgRed, color.Bold)
	emptyColor    = color.New(color.Faint)
)

func printHeader(w io.Writer, sc *scenario.Scenario) {
	name := sc.Name
	if name == "" {
		name = "(unnamed scenario)"
	}
	titleColor.Fprintf(w, "== %s ==\n", name)
}

// printResults writes one line per executed step. A step that was expected to
// fail and did is shown as such rather than as an error.
func printResults(w io.Writer, sc *scenario.Scenario, results []scenario.StepResult) {
	for _, res := range results {
		label := res.Op
		if res.Name != "" {
			label = fmt.Sprintf("%s (%s)", res.Op, res.Name)
		}
		want := sc.Steps[res.Index].Fail
		switch {
		case res.Err == nil && !want:
			okColor.Fprintf(w, "  ok   %2d %s", res.Index, label)
			fmt.Fprintf(w, ": %s\n", res.Detail)
		case res.Err != nil && want:
			expectedColor.Fprintf(w, "  deny %2d %s", res.Index, label)
			fmt.Fprintf(w, ": %v\n", res.Err)
		case res.Err != nil:
			failColor.Fprintf(w, "  FAIL %2d %s: %v\n", res.Index, label, res.Err)
		default:
			failColor.Fprintf(w, "  FAIL %2d %s: succeeded, expected rejection\n", res.Index, label)
		}
	}
}

func printInventories(w io.Writer, invs []*inventory.Inventory) {
	for _, inv := range invs {
		titleColor.Fprintf(w, "%s", inv.ID())
		fmt.Fprintf(w, " (%d slots, %d empty)\n", inv.SlotCount(), inv.EmptySlots())
		for id, s := range inv.Slots() {
			if s.IsEmpty() {
				emptyColor.Fprintf(w, "  [%2d] -\n", id)
				continue
			}
			st := s.Stack()
			fmt.Fprintf(w, "  [%2d] ", id)
			okColor.Fprintf(w, "%-16s", st.Type.Name)
			fmt.Fprintf(w, " x%d\n", st.Quantity())
		}
	}
}
