package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventdesk/internal/model"
	"github.com/alfredjeanlab/eventdesk/internal/sync"
	"github.com/alfredjeanlab/eventdesk/internal/ui"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all events",
		GroupID: "events",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			events, err := env.repo.FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), events)
			}
			printEventList(cmd.OutOrStdout(), events)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Short:   "Show an event's attributes",
		GroupID: "events",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			id := model.NormalizeID(args[0])
			e, err := env.repo.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("event %q not found", id)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), e)
			}
			printEvent(cmd.OutOrStdout(), e)
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <id> <name=prompt>...",
		Short:   "Add an event",
		GroupID: "events",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := model.NormalizeID(args[0])
			attrs, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			if err := model.ValidateCreate(id, attrs); err != nil {
				return err
			}

			env, err := openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.repo.Add(cmd.Context(), id, attrs); err != nil {
				return err
			}
			return report(cmd, "added", &model.Event{ID: id, Attributes: model.Sanitize(attrs)})
		},
	}
}

func newUpdateCmd() *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "update <id> <name=prompt>...",
		Short: "Replace an event's attributes",
		Long: `Replace an event's attributes with the given name=prompt pairs.

With --merge the pairs are applied on top of the stored attributes instead,
and a pair with an empty prompt removes that attribute.`,
		GroupID: "events",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := model.NormalizeID(args[0])
			attrs, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			env, err := openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			existing, err := env.repo.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("event %q not found", id)
			}
			if merge {
				attrs = mergeAttributes(existing.Attributes, attrs)
			}
			if err := model.ValidateUpdate(id, attrs); err != nil {
				return err
			}

			if err := env.repo.Update(cmd.Context(), id, attrs); err != nil {
				return err
			}
			return report(cmd, "updated", &model.Event{ID: id, Attributes: model.Sanitize(attrs)})
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "merge into the stored attributes instead of replacing them")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Short:   "Delete one or more events",
		GroupID: "events",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]string, 0, len(args))
			for _, a := range args {
				id := model.NormalizeID(a)
				if err := model.ValidateDelete(id); err != nil {
					return err
				}
				ids = append(ids, id)
			}

			env, err := openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			for _, id := range ids {
				if err := env.repo.Delete(cmd.Context(), id); err != nil {
					return err
				}
				if !jsonOutput {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", renderID(id))
				}
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string][]string{"deleted": ids})
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write a JSONL snapshot of all events",
		GroupID: "events",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			if output == "" || output == "-" {
				return sync.ExportJSONL(cmd.Context(), env.repo, cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := sync.ExportJSONL(cmd.Context(), env.repo, f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// parseAssignments turns name=prompt arguments into attributes. The prompt
// may itself contain "=".
func parseAssignments(args []string) (model.Attributes, error) {
	attrs := model.Attributes{}
	for _, a := range args {
		name, prompt, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid attribute %q: expected name=prompt", a)
		}
		if name == "" {
			return nil, fmt.Errorf("invalid attribute %q: name is empty", a)
		}
		if _, dup := attrs[name]; dup {
			return nil, fmt.Errorf("attribute %q given more than once", name)
		}
		attrs[name] = prompt
	}
	return attrs, nil
}

// mergeAttributes applies changes on top of base. An empty prompt removes
// the attribute.
func mergeAttributes(base, changes model.Attributes) model.Attributes {
	out := base.Clone()
	for name, prompt := range changes {
		if prompt == "" {
			delete(out, name)
			continue
		}
		out[name] = prompt
	}
	return out
}

func report(cmd *cobra.Command, verb string, e *model.Event) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), e)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d attributes)\n",
		ui.RenderSuccess(strings.ToUpper(verb[:1])+verb[1:]), renderID(e.ID), len(e.Attributes))
	return nil
}
