package main

import (
	"fmt"

	"github.com/fwojciec/larder"
)

// Run executes the repair command.
func (c *RepairCmd) Run(deps *Dependencies) error {
	outcomes, err := deps.Repairer.Repair(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	if len(outcomes) == 0 {
		fmt.Fprintln(deps.Stdout, "No sources need attention.")
		return nil
	}

	applied := 0
	for _, o := range outcomes {
		switch {
		case o.Applied:
			applied++
			fmt.Fprintf(deps.Stdout, "%s: applied %q (confidence %.2f, %d results)\n",
				o.Host, o.Proposal.Selector, o.Proposal.Confidence, o.Results)
		case o.Proposal != nil:
			fmt.Fprintf(deps.Stdout, "%s: rejected %q: %s\n", o.Host, o.Proposal.Selector, o.Reason)
		default:
			fmt.Fprintf(deps.Stdout, "%s: failed: %s\n", o.Host, o.Reason)
		}
	}

	fmt.Fprintf(deps.Stdout, "Repaired %d of %d sources\n", applied, len(outcomes))
	return nil
}
