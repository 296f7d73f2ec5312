package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/models"
)

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func renderWeek(v *models.WeekView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s .. %s)\n", v.Key(), v.StartDate, v.EndDate)

	if v.Target.Value > 0 {
		fmt.Fprintf(&b, "Target: %s %s\n", formatValue(v.Target.Value), v.Target.Unit)
	} else {
		b.WriteString("Target: not set\n")
	}

	logs := slices.Clone(v.DailyLogs)
	slices.SortFunc(logs, func(x, y models.DailyLogEntry) int { return strings.Compare(x.Date, y.Date) })
	for _, l := range logs {
		line := fmt.Sprintf("  %s  %8s", l.Date, formatValue(l.Value))
		if l.Memo != "" {
			line += "  " + l.Memo
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	total := v.Total()
	if v.Target.Value > 0 {
		pct := total / v.Target.Value * 100
		fmt.Fprintf(&b, "Total: %s / %s %s (%.0f%%)\n", formatValue(total), formatValue(v.Target.Value), v.Target.Unit, pct)
	} else {
		fmt.Fprintf(&b, "Total: %s\n", formatValue(total))
	}

	if v.IsUnpersisted() {
		b.WriteString("Not stored yet\n")
	} else {
		fmt.Fprintf(&b, "Updated: %s\n", v.UpdatedAt.Local().Format(time.DateTime))
	}
	return b.String()
}
