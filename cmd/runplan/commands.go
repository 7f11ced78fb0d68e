package main

import (
	"fmt"
	"time"

	"github.com/myrjola/runplan/internal/plan"
	"github.com/spf13/cobra"
)

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "runplan",
		Short:         "Generate and follow a running training plan",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		c.goalsCmd(),
		c.plansCmd(),
		c.recommendCmd(),
		c.parseDurationCmd(),
		c.startCmd(),
		c.showCmd(),
		c.rescheduleCmd(),
		c.resolveCmd("complete", "Mark a run as completed", plan.StatusCompleted),
		c.resolveCmd("skip", "Mark a run as skipped", plan.StatusSkipped),
	)
	return root
}

func (c *cli) goalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goals",
		Short: "List the supported goals and the plan each one recommends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPalette(c.cfg.NoColor)
			for _, goal := range plan.Goals() {
				archetype, err := plan.RecommendPlan(goal)
				if err != nil {
					return fmt.Errorf("recommend plan: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %-22s → %s\n", p.heading(goal), goal.Label(), archetype)
			}
			return nil
		},
	}
}

func (c *cli) plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the plans in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPalette(c.cfg.NoColor)
			for _, def := range c.catalog.Definitions() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d weeks, %d runs a week)\n  %s\n",
					p.heading(def.Archetype), def.Name, def.Weeks(), def.SessionsPerWeek(), p.muted(def.Description))
			}
			return nil
		},
	}
}

func (c *cli) recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <goal>",
		Short: "Show the plan recommended for a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archetype, err := plan.RecommendPlan(plan.Goal(args[0]))
			if err != nil {
				return fmt.Errorf("recommend plan: %w", err)
			}
			name := string(archetype)
			if def, ok := c.catalog.Definition(archetype); ok {
				name = def.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", archetype, name)
			return nil
		},
	}
}

func (c *cli) parseDurationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-duration <text>",
		Short: "Convert ss, mm:ss or hh:mm:ss to seconds, 0 when malformed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), plan.ParseHMS(args[0]))
			return nil
		},
	}
}

func (c *cli) startCmd() *cobra.Command {
	var (
		goal, archetype, days, start string
		fiveK, tenK                  string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Generate a plan and make it the active one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			weekdays, err := plan.ParseWeekdays(days)
			if err != nil {
				return fmt.Errorf("parse days: %w", err)
			}
			data := plan.OnboardingData{
				Goal:      plan.Goal(goal),
				Archetype: plan.Archetype(archetype),
				Weekdays:  weekdays,
				StartDate: time.Time{},
				PersonalBests: plan.PersonalBests{
					FiveK: plan.ParseHMS(fiveK),
					TenK:  plan.ParseHMS(tenK),
				},
			}
			if start != "" {
				if data.StartDate, err = time.Parse(time.DateOnly, start); err != nil {
					return fmt.Errorf("parse start date: %w", err)
				}
			}
			svc, err := c.trainingService(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.Start(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("start plan: %w", err)
			}
			printPlan(cmd.OutOrStdout(), newPalette(c.cfg.NoColor), c.catalog, p, c.now())
			return nil
		},
	}
	cmd.Flags().StringVar(&goal, "goal", "", "training goal, see the goals command")
	cmd.Flags().StringVar(&archetype, "plan", "", "plan to follow instead of the recommended one")
	cmd.Flags().StringVar(&days, "days", "mon,wed,fri", "comma separated running days")
	cmd.Flags().StringVar(&start, "start", "", "first day of the plan as YYYY-MM-DD, next Monday when empty")
	cmd.Flags().StringVar(&fiveK, "pb-5k", "", "5K personal best as mm:ss")
	cmd.Flags().StringVar(&tenK, "pb-10k", "", "10K personal best as mm:ss or h:mm:ss")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active plan week by week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.trainingService(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.ActivePlan(cmd.Context())
			if err != nil {
				return fmt.Errorf("active plan: %w", err)
			}
			printPlan(cmd.OutOrStdout(), newPalette(c.cfg.NoColor), c.catalog, p, c.now())
			return nil
		},
	}
}

func (c *cli) rescheduleCmd() *cobra.Command {
	var days, archetype string
	cmd := &cobra.Command{
		Use:   "reschedule",
		Short: "Move the remaining runs to new days, optionally switching plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			weekdays, err := plan.ParseWeekdays(days)
			if err != nil {
				return fmt.Errorf("parse days: %w", err)
			}
			svc, err := c.trainingService(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.ChangeSchedule(cmd.Context(), weekdays, plan.Archetype(archetype))
			if err != nil {
				return fmt.Errorf("change schedule: %w", err)
			}
			printPlan(cmd.OutOrStdout(), newPalette(c.cfg.NoColor), c.catalog, p, c.now())
			return nil
		},
	}
	cmd.Flags().StringVar(&days, "days", "", "comma separated running days")
	cmd.Flags().StringVar(&archetype, "plan", "", "plan to switch to, keeping completed runs")
	_ = cmd.MarkFlagRequired("days")
	return cmd
}

func (c *cli) resolveCmd(use, short string, status plan.RunStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <run-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.trainingService(cmd.Context())
			if err != nil {
				return err
			}
			resolve := svc.CompleteRun
			if status == plan.StatusSkipped {
				resolve = svc.SkipRun
			}
			if err = resolve(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s run: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], status)
			return nil
		},
	}
}
