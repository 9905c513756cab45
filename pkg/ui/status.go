package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"taskrecover/pkg/checkpoint"
)

// Worker status labels
const (
	StatusDone       = "done"
	StatusInProgress = "in progress"
	StatusFresh      = "fresh"
	StatusFailed     = "failed"
	StatusStopped    = "stopped"
)

// RenderStatusTable renders every persisted record, sorted by worker id
func RenderStatusTable(records map[int]checkpoint.Record, threshold int) string {
	if len(records) == 0 {
		return warningStyle.Render("No checkpoints found")
	}

	ids := make([]int, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([][]string, 0, len(ids))
	percentages := make([]float64, 0, len(ids))
	for _, id := range ids {
		rec := records[id]
		count := rec.TaskCount()
		rows = append(rows, []string{
			strconv.Itoa(id),
			strconv.Itoa(count),
			Progress(count, threshold, 10),
			recordStatus(count, threshold),
			extraFields(rec),
		})
		percentages = append(percentages, percent(count, threshold))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("WORKER", "TASKS", "PROGRESS", "STATUS", "FIELDS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch col {
			case 2:
				return progressStyle(percentages[row])
			case 3:
				if rows[row][3] == StatusDone {
					return successStyle.Padding(0, 1)
				}
				return valueStyle.Padding(0, 1)
			}
			return cellStyle
		})

	return titleStyle.Render("Checkpoints") + "\n" + t.Render()
}

func recordStatus(count, threshold int) string {
	switch {
	case count >= threshold:
		return StatusDone
	case count > 0:
		return StatusInProgress
	default:
		return StatusFresh
	}
}

func percent(count, threshold int) float64 {
	if threshold <= 0 {
		return 0
	}
	return float64(count) * 100 / float64(threshold)
}

// extraFields formats record fields other than task_count as "k=v", sorted by key
func extraFields(rec checkpoint.Record) string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if k != checkpoint.FieldTaskCount {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "-"
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, rec[k])
	}
	return strings.Join(parts, " ")
}

// SummaryRow is one worker's line in the run summary
type SummaryRow struct {
	WorkerID   int
	StartCount int
	FinalCount int
	TasksDone  int
	Crashes    int
	Completed  bool
	Err        error
	Duration   time.Duration
}

// RenderSummary renders the end-of-run table
func RenderSummary(rows []SummaryRow, threshold int, elapsed time.Duration) string {
	data := make([][]string, 0, len(rows))
	completed := 0
	for _, r := range rows {
		status := StatusStopped
		switch {
		case r.Completed:
			status = StatusDone
			completed++
		case r.Err != nil:
			status = StatusFailed
		}
		data = append(data, []string{
			strconv.Itoa(r.WorkerID),
			fmt.Sprintf("%d → %d", r.StartCount, r.FinalCount),
			strconv.Itoa(r.TasksDone),
			strconv.Itoa(r.Crashes),
			r.Duration.Round(time.Millisecond).String(),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("WORKER", "TASK COUNT", "TASKS RUN", "CRASHES", "ELAPSED", "STATUS").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 5 {
				switch data[row][5] {
				case StatusDone:
					return successStyle.Padding(0, 1)
				case StatusFailed:
					return errorStyle.Padding(0, 1)
				default:
					return warningStyle.Padding(0, 1)
				}
			}
			return cellStyle
		})

	headline := fmt.Sprintf("%d/%d workers reached %d tasks in %s",
		completed, len(rows), threshold, elapsed.Round(time.Millisecond))
	style := successStyle
	if completed < len(rows) {
		style = warningStyle
	}

	return titleStyle.Render("Run summary") + "\n" + t.Render() + "\n" + style.Render(headline)
}
