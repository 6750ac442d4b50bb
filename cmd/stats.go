package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lberthe/cadence/internal/config"
	"github.com/lberthe/cadence/internal/engine"
	"github.com/lberthe/cadence/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		dbPath, err := resolveDBPath(cmd, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		user, _ := cmd.Flags().GetString("user")
		eng := engine.New(st.UserStates())
		defer eng.Close()

		s := eng.Stats(cmd.Context(), user)
		fmt.Printf("Learner: %s\n", user)
		fmt.Printf("  XP: %d   daily streak: %d   questions: %d   skills mastered: %d\n",
			s.TotalXP, s.DailyStreak, s.TotalQuestions, s.SkillsMastered)

		if len(s.Topics) == 0 {
			fmt.Println("  No topics practiced yet.")
			return nil
		}

		topics := make([]string, 0, len(s.Topics))
		for t := range s.Topics {
			topics = append(topics, t)
		}
		sort.Strings(topics)

		fmt.Println("\n  topic                 mastery  stability  recall  next review")
		for _, t := range topics {
			ts := s.Topics[t]
			fmt.Printf("  %-20s  %5d%%  %8.1fd  %5.0f%%  in %d day(s)\n",
				t, ts.Mastery, ts.Stability, ts.Retrievability*100, ts.NextReviewDays)
		}
		return nil
	},
}
