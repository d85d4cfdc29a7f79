package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/fwojciec/larder"
)

// Run executes the health command.
func (c *HealthCmd) Run(deps *Dependencies) error {
	var filter larder.SourceFilter
	if c.Attention {
		attention := true
		filter.NeedsAttention = &attention
	}

	sources, err := deps.Sources.FindSources(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	if len(sources) == 0 {
		fmt.Fprintln(deps.Stdout, "No sources found.")
		return nil
	}

	ok := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()

	for _, s := range sources {
		var status string
		switch {
		case s.NeedsAttention:
			status = bad("needs attention")
		case s.ConsecutiveFailures > 0:
			status = warn(fmt.Sprintf("failing (%d)", s.ConsecutiveFailures))
		case !s.Enabled:
			status = "disabled"
		default:
			status = ok("ok")
		}

		validated := "never"
		if s.LastValidatedAt != nil {
			validated = s.LastValidatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(deps.Stdout, "%-32s %-20s failures=%d last=%s\n", s.Host, status, s.ConsecutiveFailures, validated)
	}
	return nil
}
