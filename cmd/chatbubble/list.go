package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/chatbubble/internal/core"
	"github.com/jmylchreest/chatbubble/internal/output"
)

var listOpts struct {
	format   string
	template string
	filter   string
	sortBy   string
	order    string
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List active chat bubbles",
	Long: `List the active chat bubbles in creation order.

Output formats:
  plain  One line per bubble rendered with --template (default)
  json   A JSON array of bubble sessions
  yaml   A YAML sequence of bubble sessions
  ids    One user id per line

Template fields: .Index, .SessionID, .Bubble.Identity, .Bubble.DisplayName,
.Bubble.AvatarURL, .Position.X, .Position.Y, .CreatedAt, .Age
Template functions: truncate, upper, initials

Filter expressions are comma separated conditions that must all match.
Fields: id, name, avatar, x, y, age. Operators: = != ~ ~= > < >= <=

Examples:
  chatbubble list --template '{{.Index}}. {{initials .Bubble}} {{.Age}}'
  chatbubble list --filter 'age<5m' --sort name
  chatbubble list --filter 'name~=(?i)^a' --format ids`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", "",
		"Output format: plain, json, yaml, ids (default from config)")
	listCmd.Flags().StringVarP(&listOpts.template, "template", "t", "",
		"Go template for plain output (default from config)")
	listCmd.Flags().StringVar(&listOpts.filter, "filter", "",
		"Filter expression (e.g. 'name~ali,age<1h')")
	listCmd.Flags().StringVar(&listOpts.sortBy, "sort", "created",
		"Sort field: created, name, id, y")
	listCmd.Flags().StringVar(&listOpts.order, "order", "asc",
		"Sort order: asc, desc")
}

func runList(cmd *cobra.Command, args []string) error {
	c := getConfig()
	format := listOpts.format
	if format == "" {
		format = c.List.Format
	}
	tmpl := listOpts.template
	if tmpl == "" {
		tmpl = c.List.Template
	}

	expr, err := core.ParseFilter(listOpts.filter)
	if err != nil {
		return err
	}
	field, err := core.ParseSortField(listOpts.sortBy)
	if err != nil {
		return err
	}
	order, err := core.ParseSortOrder(listOpts.order)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.FormatType(format), output.FormatterOptions{Template: tmpl})
	if err != nil {
		return err
	}

	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	sessions, err := client.List()
	if err != nil {
		return err
	}
	sessions = core.FilterWithExpr(sessions, expr, time.Now())
	core.Sort(sessions, core.SortOptions{Field: field, Order: order})
	return formatter.Format(cmd.OutOrStdout(), sessions)
}
