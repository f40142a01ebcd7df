// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/slothbot-dev/slothbot/internal/server"
	"github.com/slothbot-dev/slothbot/internal/store"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	statusStyle = map[string]lipgloss.Style{
		string(store.StatusPending):    cellStyle.Foreground(lipgloss.Color("214")),
		string(store.StatusClassified): cellStyle.Foreground(lipgloss.Color("39")),
		string(store.StatusDone):       cellStyle.Foreground(lipgloss.Color("10")),
	}
)

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect stored image records",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List records in ingestion order",
		Args:  cobra.NoArgs,
		RunE:  runRecordsList,
	}
	addQueryFlags(list)

	export := &cobra.Command{
		Use:   "export",
		Short: "Export records as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE:  runRecordsExport,
	}
	addQueryFlags(export)
	export.Flags().StringP("format", "f", "json", "output format: json or yaml")
	export.Flags().StringP("output", "o", "", "write to file instead of stdout")

	cmd.AddCommand(list, export)
	return cmd
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("status", "", "only records with this status (pending, classified, done)")
	cmd.Flags().String("category", "", "only records in this category")
	cmd.Flags().Int("limit", 0, "maximum number of records (0 for all)")
}

func recordQuery(cmd *cobra.Command) (server.RecordQuery, error) {
	var q server.RecordQuery
	q.Status, _ = cmd.Flags().GetString("status")
	q.Category, _ = cmd.Flags().GetString("category")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	if q.Status != "" && !store.Status(q.Status).Valid() {
		return q, slotherr.Errorf(slotherr.CodeCLIInputInvalid, "unknown status %q: want pending, classified or done", q.Status)
	}
	if q.Limit < 0 {
		return q, slotherr.Errorf(slotherr.CodeCLIInputInvalid, "limit must not be negative, got %d", q.Limit)
	}
	return q, nil
}

func listRecords(ctx context.Context, app *App, q server.RecordQuery) ([]server.RecordView, error) {
	return server.NewRecordService(app.Records).List(ctx, q)
}

func runRecordsList(cmd *cobra.Command, _ []string) error {
	q, err := recordQuery(cmd)
	if err != nil {
		return err
	}
	return withCore(cmd, func(ctx context.Context, app *App) error {
		views, err := listRecords(ctx, app, q)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(views) == 0 {
			_, err := fmt.Fprintln(out, "no records")
			return err
		}
		_, err = fmt.Fprintln(out, renderRecordTable(views))
		return err
	})
}

func renderRecordTable(views []server.RecordView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			strconv.FormatInt(v.Seq, 10), v.Status, v.Category, v.Name, v.Description, v.BlobPath,
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("#", "STATUS", "CATEGORY", "NAME", "DESCRIPTION", "BLOB").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(rows) {
				if s, ok := statusStyle[rows[row][1]]; ok {
					return s
				}
			}
			return cellStyle
		}).
		String()
}

func runRecordsExport(cmd *cobra.Command, _ []string) error {
	q, err := recordQuery(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "yaml" {
		return slotherr.Errorf(slotherr.CodeCLIInputInvalid, "unknown format %q: want json or yaml", format)
	}
	outPath, _ := cmd.Flags().GetString("output")

	return withCore(cmd, func(ctx context.Context, app *App) error {
		views, err := listRecords(ctx, app, q)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return slotherr.Errorf(slotherr.CodeCLIRequestFailure, "creating %s: %w", outPath, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		return encodeRecords(w, format, views)
	})
}

func encodeRecords(w io.Writer, format string, views []server.RecordView) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return slotherr.Errorf(slotherr.CodeCLIRequestFailure, "encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(views); err != nil {
			return slotherr.Errorf(slotherr.CodeCLIRequestFailure, "encoding json: %w", err)
		}
		return nil
	}
}
