package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rendis/chatflow/internal/validation"
	"github.com/rendis/chatflow/pkg/schema"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the flows of the tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteContext(cmd.Context())
			defer cancel()

			flows, err := m.List(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), flows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tACTIVE\tNODES\tUPDATED")
			for _, f := range flows {
				updated := "-"
				if !f.UpdatedAt.IsZero() {
					updated = f.UpdatedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%s\n",
					f.ID, f.Name, f.Status, f.IsActive, len(f.Nodes), updated)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full list as JSON")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a flow and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteContext(cmd.Context())
			defer cancel()

			f, err := m.FetchOne(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), f)
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		description string
		from        string
		status      string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a flow, seeded with a Start node or read from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			if from != "" {
				f, err := readFlowFile(cmd, from)
				if err != nil {
					return err
				}
				m.Graph().SetNodes(f.Nodes)
				m.Graph().SetEdges(f.Edges)
			}
			if status != "" {
				m.SetStatus(schema.FlowStatus(status))
			}

			ctx, cancel := a.remoteContext(cmd.Context())
			defer cancel()

			f, err := m.Create(ctx, args[0], description)
			if err != nil {
				return err
			}
			a.logger.Info("flow created", "flow_id", f.ID, "name", f.Name)
			return printJSON(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "flow description")
	cmd.Flags().StringVarP(&from, "from", "f", "", "read nodes and edges from a flow document")
	cmd.Flags().StringVar(&status, "status", "", "initial status: draft, published or archived")
	return cmd
}

func newPushCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push <file.json|->",
		Short: "Save a flow document: update it when it has an id, create it otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readFlowFile(cmd, args[0])
			if err != nil {
				return err
			}

			if !force {
				v, err := validation.NewFlowValidator(nil)
				if err != nil {
					return err
				}
				if result := v.ValidateFlow(doc); !result.Valid() {
					if err := printJSON(cmd.ErrOrStderr(), result.Verdict()); err != nil {
						return err
					}
					return fmt.Errorf("refusing to push an invalid flow (use --force to override)")
				}
			}

			m, err := a.manager()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteContext(cmd.Context())
			defer cancel()

			if doc.Saved() {
				if _, err := m.FetchOne(ctx, doc.ID); err != nil {
					return err
				}
			}
			name, description := m.Details()
			if strings.TrimSpace(doc.Name) != "" {
				name = doc.Name
			}
			if doc.Description != "" {
				description = doc.Description
			}
			m.SetDetails(name, description)
			if doc.Status != "" {
				m.SetStatus(doc.Status)
			}
			m.Graph().SetNodes(doc.Nodes)
			m.Graph().SetEdges(doc.Edges)

			f, err := m.Save(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("flow pushed", "flow_id", f.ID, "name", f.Name)
			return printJSON(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "push even when local validation fails")
	return cmd
}

func newDuplicateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id> <new-name>",
		Short: "Copy a flow under a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteContext(cmd.Context())
			defer cancel()

			f, err := m.Duplicate(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), f)
		},
	}
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the active flag of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteContext(cmd.Context())
			defer cancel()

			active, err := m.ToggleActive(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"isActive": active})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			ctx, cancel := a.remoteContext(cmd.Context())
			defer cancel()

			if _, err := m.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
