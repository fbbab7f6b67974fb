// Package main drives a simulated swerve robot through a demo path and reports where
// it ended up.
package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"

	"go.viam.com/swerve/config"
	dtfake "go.viam.com/swerve/drivetrain/fake"
	"go.viam.com/swerve/robot"
	rollerfake "go.viam.com/swerve/roller/fake"
	"go.viam.com/swerve/scheduler"
	"go.viam.com/swerve/spatialmath"
)

const (
	flagConfig = "config"
	flagDemo   = "demo"
	flagTicks  = "ticks"
)

func main() {
	goutils.ContextualMain(mainWithArgs, logging.NewLogger("swerve-sim"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	app := &cli.App{
		Name:  "swerve-sim",
		Usage: "drive a simulated swerve robot through a demo path",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   "etc/swerve.properties",
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagDemo,
				Value: "square",
				Usage: "path to drive: single, square, consolidated or shuttle",
			},
			&cli.IntFlag{
				Name:  flagTicks,
				Value: 3000,
				Usage: "give up after `N` control periods",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, c.String(flagConfig), c.String(flagDemo), c.Int(flagTicks), logger)
		},
	}
	return app.RunContext(ctx, args)
}

func run(ctx context.Context, configPath, demo string, ticks int, logger logging.Logger) (err error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	start := spatialmath.Pose2D{}
	sim, err := dtfake.NewDrivetrain(cfg.Drivetrain.MaxModuleSpeed, start, cfg.Drivetrain.Modules.Locations()...)
	if err != nil {
		return err
	}
	clk := clock.NewMock()
	r, err := robot.New(cfg, robot.Hardware{
		Drivetrain:  sim,
		RollerMotor: &rollerfake.Motor{},
		RollerLED:   &rollerfake.LED{},
		Simulator:   sim,
		Clock:       clk,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.Close(ctx))
	}()

	task, err := demoTask(r, demo)
	if err != nil {
		return err
	}
	if !r.Schedule(ctx, task) {
		return errors.Errorf("%s was not scheduled", task.Name())
	}
	logger.Infow("demo started", "demo", demo, "task", task.Name(), "pose", start)

	var n int
	for n = 0; n < ticks && r.IsScheduled(task); n++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.Tick(ctx); err != nil {
			return err
		}
		clk.Add(cfg.Period)
	}

	pose, err := r.Drivetrain().Pose(ctx)
	if err != nil {
		return err
	}
	logger.Infow("demo finished",
		"demo", demo,
		"ticks", n,
		"simulated", time.Duration(n)*cfg.Period,
		"completed", !r.IsScheduled(task),
		"pose", pose,
		"drift", pose.Minus(start),
	)
	return nil
}

func demoTask(r *robot.Robot, demo string) (scheduler.Task, error) {
	mover := r.Mover()
	leg := spatialmath.NewTransform2D(3, 0, 0)
	quarterTurn := spatialmath.NewTransform2D(0, 0, spatialmath.DegToRad(-90))
	switch demo {
	case "single":
		return mover.MoveRelative(leg)
	case "square":
		return mover.Square(leg, quarterTurn)
	case "consolidated":
		return mover.Consolidated(spatialmath.NewTransform2D(3, 0, spatialmath.DegToRad(-90)))
	case "shuttle":
		return mover.Shuttle(1)
	default:
		return nil, errors.Errorf("unknown demo %q", demo)
	}
}
