package main

import (
	"fmt"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/search"
	"github.com/fwojciec/larder/yaml"
)

// Run executes the sources list command.
func (c *SourcesListCmd) Run(deps *Dependencies) error {
	sources, err := deps.Sources.FindSources(deps.Ctx, larder.SourceFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	if len(sources) == 0 {
		fmt.Fprintln(deps.Stdout, "No sources found. Use 'larder sources import' to load the built-in list.")
		return nil
	}

	for _, s := range sources {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %s\n", s.Host, s.Name, state, s.SearchURL)
	}
	return nil
}

// Run executes the sources add command.
func (c *SourcesAddCmd) Run(deps *Dependencies) error {
	source := &larder.SearchSource{
		Host:      c.Host,
		Name:      c.Name,
		Enabled:   !c.Disabled,
		SearchURL: c.SearchURL,
		Selector:  c.Selector,
	}
	if source.Name == "" {
		source.Name = c.Host
	}

	if err := deps.Sources.CreateSource(deps.Ctx, source); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Added source %q\n", source.Host)
	return nil
}

// Run executes the sources enable command.
func (c *SourcesEnableCmd) Run(deps *Dependencies) error {
	return setEnabled(deps, c.Host, true)
}

// Run executes the sources disable command.
func (c *SourcesDisableCmd) Run(deps *Dependencies) error {
	return setEnabled(deps, c.Host, false)
}

func setEnabled(deps *Dependencies, host string, enabled bool) error {
	if _, err := deps.Sources.UpdateSource(deps.Ctx, host, larder.SourceUpdate{Enabled: &enabled}); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	verb := "Enabled"
	if !enabled {
		verb = "Disabled"
	}
	fmt.Fprintf(deps.Stdout, "%s source %q\n", verb, host)
	return nil
}

// Run executes the sources remove command.
func (c *SourcesRemoveCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm removal\n")
		return larder.Errorf(larder.EINVALID, "use --force to confirm removal")
	}

	if err := deps.Sources.DeleteSource(deps.Ctx, c.Host); err != nil {
		if larder.ErrorCode(err) == larder.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: source %q not found. Use 'larder sources list' to see available sources.\n", c.Host)
			return err
		}
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Removed source %q\n", c.Host)
	return nil
}

// Run executes the sources import command.
func (c *SourcesImportCmd) Run(deps *Dependencies) error {
	var (
		sources []*larder.SearchSource
		err     error
	)
	if c.File == "" {
		sources, err = yaml.DefaultSources()
	} else {
		sources, err = yaml.LoadSourcesFile(c.File)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	res, err := search.ImportSources(deps.Ctx, deps.Sources, sources)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Imported %d sources (%d new, %d updated)\n", res.Created+res.Updated, res.Created, res.Updated)
	return nil
}
