package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

var (
	gainColor = color.New(color.FgGreen)
	lossColor = color.New(color.FgRed)
	headColor = color.New(color.Bold)
)

// formatPnL renders a signed amount with gain/loss coloring.
func formatPnL(v float64) string {
	s := fmt.Sprintf("%+.2f", v)
	if v < 0 {
		return lossColor.Sprint(s)
	}
	return gainColor.Sprint(s)
}

// printLeaderboard renders the final ranking table.
func printLeaderboard(cmd *cobra.Command, scores []models.ScoreResult) {
	cmd.Println(headColor.Sprint("rank  participant   realized      penalties     score"))
	for i, s := range scores {
		penalties := s.BreachPenalty + s.VaRPenalty + s.DrawdownPenalty + s.FeePenalty
		cmd.Printf("%4d  %-12s  %12s  %12.2f  %12.2f\n",
			i+1, s.ParticipantID, formatPnL(s.RealizedPnL), penalties, s.DisplayScore)
	}
}
