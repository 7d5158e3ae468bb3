package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderCallSummary prints the end-of-call stats table.
func RenderCallSummary(roomKey string, duration time.Duration, peakParticipants int) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetTitle("📊 Call Summary")

	if roomKey == "" {
		roomKey = "-"
	}
	t.AppendRows([]table.Row{
		{"Room", roomKey},
		{"Duration", duration.Round(time.Second).String()},
		{"Peak participants", peakParticipants},
	})

	fmt.Println(t.Render())
}
