package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the jobs known to the Jenkins instance",
	Args:  cobra.NoArgs,
	RunE:  runJobs,
}

func runJobs(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	client, err := newJenkinsClient(cfg, logger)
	if err != nil {
		return err
	}

	jobs, err := client.ListJobs(cmd.Context())
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Name", "Color", "URL"})
	for _, job := range jobs {
		tw.AppendRow(table.Row{job.Name, job.Color, job.URL})
	}
	fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
	return nil
}
