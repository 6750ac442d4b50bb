package cmd

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lberthe/cadence/internal/config"
	"github.com/lberthe/cadence/internal/engine"
	"github.com/lberthe/cadence/internal/logging"
	"github.com/lberthe/cadence/internal/question"
	"github.com/lberthe/cadence/internal/store"
)

var playCmd = &cobra.Command{
	Use:   "play [topic]",
	Short: "Start a practice session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := "arithmetic"
		if len(args) > 0 {
			topic = args[0]
		}

		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		log, err := logging.New(cfg.LogMode)
		if err != nil {
			return err
		}
		defer log.Sync()

		dbPath, err := resolveDBPath(cmd, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		eng := engine.New(st.UserStates(),
			engine.WithLogger(log),
			engine.WithAutosaveEvery(cfg.AutosaveEvery),
			engine.WithTargetRetention(cfg.TargetRetention),
		)
		defer eng.Close()
		if cfg.FlushIntervalSec > 0 {
			if err := eng.StartAutoFlush(time.Duration(cfg.FlushIntervalSec) * time.Second); err != nil {
				return fmt.Errorf("start auto flush: %w", err)
			}
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		var gen question.Generator = question.NewLocal(rng)
		if cfg.OpenAIKey != "" {
			remote, err := question.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, gen, log)
			if err != nil {
				fmt.Fprintln(os.Stderr, "OpenAI generator not configured:", err)
			} else {
				gen = remote
			}
		}

		user, _ := cmd.Flags().GetString("user")
		return runSession(cmd, eng, gen, user, topic)
	},
}

func runSession(cmd *cobra.Command, eng *engine.Engine, gen question.Generator, user, topic string) error {
	ctx := cmd.Context()
	in := bufio.NewScanner(os.Stdin)

	fmt.Printf("Practicing %q as %s. Empty answer or 'quit' ends the session.\n\n", topic, user)
	for {
		params := eng.GetNextQuestion(ctx, user, topic, -1)
		if params.ShouldTakeBreak {
			fmt.Println("You've been at it a while. A short break will help more than one more question.")
		}
		if params.InterleaveSuggested {
			fmt.Println("Tip: mixing in another topic makes practice stick better.")
		}

		q, err := gen.Generate(ctx, topic, params.Difficulty)
		if err != nil {
			return fmt.Errorf("generate question: %w", err)
		}

		fmt.Printf("[%s] %s\n> ", params.DifficultyName, q.Prompt)
		start := time.Now()
		if !in.Scan() {
			break
		}
		answer := strings.TrimSpace(in.Text())
		if answer == "" || strings.EqualFold(answer, "quit") {
			break
		}
		elapsed := time.Since(start).Seconds()

		res := eng.ProcessAnswer(ctx, user, topic, q.Check(answer), elapsed, params.Difficulty)
		if !res.Correct {
			fmt.Printf("The answer was %s.\n", q.Answer)
		}
		fmt.Printf("%s  (+%d XP, streak %d)\n", res.Feedback, res.XPEarned, res.Streak)
		if res.StreakMessage != "" {
			fmt.Println(res.StreakMessage)
		}
		for _, m := range res.Milestones {
			fmt.Println("★", m)
		}
		for _, w := range res.DecayWarnings {
			fmt.Println("Review soon:", w)
		}
		if res.ShouldTakeBreak {
			fmt.Println("You've been at it a while. A short break helps more than pushing on.")
		}
		fmt.Println()
	}

	eng.ResetSession(ctx, user)
	fmt.Println("Session saved. See you tomorrow!")
	return in.Err()
}
