package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/karpella/ec2console/internal/aws/ec2"
	"github.com/karpella/ec2console/internal/engine"
	"github.com/karpella/ec2console/internal/utils"
)

func NewInstancesCmd() *cobra.Command {
	var (
		region string
		states []string
		types  []string
		tags   []string
		zone   string
		vpc    string
	)

	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List EC2 instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := ec2.Filters{Types: types, Zone: zone, VpcID: vpc}
			for _, s := range states {
				st := ec2.InstanceState(s)
				if !st.Known() {
					return fmt.Errorf("unknown state %q", s)
				}
				filters.States = append(filters.States, st)
			}
			var err error
			filters.Tags, err = parseTagPairs(tags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.requireSession(ctx); err != nil {
				return err
			}

			eng := app.newEngine(app.cfg.Merge(region), engine.Options{})
			key := engine.Key{Region: eng.Region(), Filters: filters}
			snap, err := eng.Refresh(ctx, key)
			if err != nil {
				return err
			}

			if len(snap.Instances) == 0 {
				fmt.Println("No instances matched.")
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"NAME", "INSTANCE ID", "STATE", "TYPE", "ZONE", "PUBLIC IP", "LAUNCHED"})
			for _, inst := range snap.Instances {
				publicIP := inst.PublicIP
				if publicIP == "" {
					publicIP = "—"
				}
				tw.AppendRow(table.Row{
					inst.DisplayName(),
					inst.ID,
					string(inst.State),
					inst.Type,
					inst.Zone,
					publicIP,
					utils.TimeOrDash(inst.LaunchedAt, utils.DateTime),
				})
			}
			tw.Render()

			s := snap.Stats
			fmt.Printf("%d instances: %d running, %d stopped, %d vCPUs, est %s/h (%s/mo)\n",
				s.Total, s.Running, s.Stopped, s.VCPUs,
				utils.Currency(s.HourlyUSD, "USD"), utils.Currency(s.MonthlyUSD, "USD"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")
	cmd.Flags().StringSliceVar(&states, "state", nil, "filter by lifecycle state (repeatable)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "filter by instance type (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "filter by tag, as key=value (repeatable)")
	cmd.Flags().StringVar(&zone, "zone", "", "filter by availability zone")
	cmd.Flags().StringVar(&vpc, "vpc", "", "filter by VPC id")

	return cmd
}

func parseTagPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("tag %q is not key=value", pair)
		}
		tags[k] = v
	}
	return tags, nil
}
