package main

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard/client"
)

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the team roster (admins and managers)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, snap, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			if err := requireCapability(c, snap, client.CanViewTeamRoster); err != nil {
				return err
			}

			users, err := c.Users(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), users)
			}
			for _, u := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", u.UserID, u.Name, u.Email, u.Role)
			}
			return nil
		},
	}
}

func newLogTimeCmd() *cobra.Command {
	var (
		projectID, taskID int64
		hours             float64
		nonBillable       bool
		date, note        string
	)

	cmd := &cobra.Command{
		Use:   "log-time",
		Short: "Record hours worked on a project (at most 8 per day)",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				d, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				day = d
			}
			req := client.CreateTimeEntryRequest{
				ProjectID: projectID,
				Hours:     hours,
				Billable:  client.Billable,
				WorkDate:  strfmt.Date(day),
				Note:      note,
			}
			if nonBillable {
				req.Billable = client.NonBillable
			}
			if taskID > 0 {
				req.TaskID = &taskID
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, _, err := signedIn(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			te, err := c.CreateTimeEntry(ctx, req)
			if err != nil {
				return fmt.Errorf("log time failed: %s", client.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %.2fh on %s (entry %d)\n", float64(te.Hours), te.WorkDate, te.TimeEntryID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Project ID (required)")
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID (optional)")
	cmd.Flags().Float64Var(&hours, "hours", 0, "Hours worked (required)")
	cmd.Flags().BoolVar(&nonBillable, "non-billable", false, "Mark the entry non-billable")
	cmd.Flags().StringVar(&date, "date", "", "Work date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&note, "note", "", "Note (optional)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("hours")

	return cmd
}
