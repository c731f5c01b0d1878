package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scenarios/pkg/document"
	"github.com/roach88/scenarios/pkg/template"
)

// TemplateInfo describes one loaded template.
type TemplateInfo struct {
	Collection string   `json:"collection"`
	Fields     []string `json:"fields"`
}

// TemplatesResult is the output of the templates command.
type TemplatesResult struct {
	Path      string         `json:"path"`
	Templates []TemplateInfo `json:"templates"`
}

// NewTemplatesCommand creates the templates command.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the templates found in --templates-path",
		Long: `Load every template file in the templates directory and list the
collections they register with their default fields.

Files without a TEMPLATE value, or that fail to parse, are skipped
(shown with --verbose).

Examples:
  scenarios templates --templates-path ./tests/templates
  scenarios templates --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTemplates(rootOpts, cmd)
		},
	}
}

func listTemplates(opts *RootOptions, cmd *cobra.Command) error {
	logger := opts.logger(cmd)
	out := opts.formatter(cmd)

	options, err := opts.resolveOptions(cmd, logger)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to resolve options", err)
	}

	set, err := template.LoadDir(options.TemplatesPath, template.WithLogger(logger))
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeTemplates, "failed to load templates", err)
	}

	result := TemplatesResult{
		Path:      options.TemplatesPath,
		Templates: make([]TemplateInfo, 0, len(set)),
	}
	for _, name := range set.Names() {
		info := TemplateInfo{Collection: name, Fields: []string{}}
		if doc, ok := document.As(set[name]); ok {
			info.Fields = doc.Keys()
		}
		result.Templates = append(result.Templates, info)
	}

	if opts.Format == "json" {
		return out.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, info := range result.Templates {
		fmt.Fprintf(w, "%s\t%s\n", info.Collection, strings.Join(info.Fields, ", "))
	}
	fmt.Fprintf(w, "%d template(s) in %s\n", len(result.Templates), result.Path)
	return nil
}
