// Command eolscene replays a YAML scene and logs the size of the constraint
// system assembled at every step.
//
// Usage:
//
//	eolscene run scenes/press.yaml --log-level debug
package main

import (
	"fmt"
	"os"

	"github.com/akmonengine/eolcloth"
	"github.com/akmonengine/eolcloth/scene"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	stepsOverride int
	logLevel      string
	draw          bool
)

var rootCmd = &cobra.Command{
	Use:   "eolscene",
	Short: "Cloth contact-line scene runner",
}

var runCmd = &cobra.Command{
	Use:   "run <scene.yaml>",
	Short: "Replay a scene step by step",
	Long: `Loads the scene, then for every step detects contacts, remeshes the
cloth around them and assembles the constraint system. The system itself is
not solved: cloth nodes only move when the scene gives them a velocity.`,
	Args: cobra.ExactArgs(1),
	RunE: runScene,
}

func init() {
	runCmd.Flags().IntVar(&stepsOverride, "steps", 0, "number of steps (overrides the scene)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (overrides the scene config)")
	runCmd.Flags().BoolVar(&draw, "draw", false, "record constraint draw buffers")
	rootCmd.AddCommand(runCmd)
}

func runScene(cmd *cobra.Command, args []string) error {
	s, err := scene.Load(args[0])
	if err != nil {
		return err
	}
	if logLevel != "" {
		s.Config.Logging.Level = logLevel
	}
	steps := s.Steps
	if stepsOverride > 0 {
		steps = stepsOverride
	}

	logger, err := s.Config.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run", uuid.New().String()[:8]), zap.String("scene", s.Name))

	w, err := s.Build(logger)
	if err != nil {
		return err
	}
	w.Assembler.Draw = draw
	subscribe(w, logger)

	eq, ineq := 0, 0
	for i := 0; i < steps; i++ {
		sys, err := w.Step(s.Dt)
		if err != nil {
			logger.Error("step failed", zap.Int("step", i), zap.Error(err))
			return err
		}
		eq += len(sys.Beq)
		ineq += len(sys.Bineq)

		fields := []zap.Field{
			zap.Int("step", i),
			zap.Int("nodes", w.Cloth.NumNodes()),
			zap.Int("eol", w.Cloth.EoLCount()),
			zap.Int("eq", len(sys.Beq)),
			zap.Int("ineq", len(sys.Bineq)),
			zap.Bool("fixed", sys.HasFixed),
			zap.Bool("collisions", sys.HasCollisions),
		}
		if sys.Draw != nil {
			fields = append(fields, zap.Int("draw", len(sys.Draw.Eq)+len(sys.Draw.Ineq)))
		}
		logger.Info("step", fields...)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps, %d nodes, %d EOL, %d eq rows, %d ineq rows\n",
		s.Name, steps, w.Cloth.NumNodes(), w.Cloth.EoLCount(), eq, ineq)
	return nil
}

func subscribe(w *eolcloth.World, logger *zap.Logger) {
	w.Events.Subscribe(eolcloth.EOL_ENTER, func(event eolcloth.Event) {
		e := event.(eolcloth.EOLEnterEvent)
		logger.Debug("eol enter", zap.Int("node", int(e.Node)), zap.Int("corner", e.Feature.Corner), zap.Ints("edges", e.Feature.Edges))
	})
	w.Events.Subscribe(eolcloth.EOL_EXIT, func(event eolcloth.Event) {
		e := event.(eolcloth.EOLExitEvent)
		logger.Debug("eol exit", zap.Int("node", int(e.Node)), zap.Int("corner", e.Feature.Corner), zap.Ints("edges", e.Feature.Edges))
	})
	w.Events.Subscribe(eolcloth.EOL_REVERT, func(event eolcloth.Event) {
		e := event.(eolcloth.EOLRevertEvent)
		logger.Debug("eol revert", zap.Int("node", int(e.Node)), zap.Stringer("from", e.From))
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
