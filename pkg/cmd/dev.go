package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/consts"
	"github.com/pseudomuto/pgkeeper/pkg/docker"
	"github.com/urfave/cli/v3"
)

func dev() *cli.Command {
	return &cli.Command{
		Name:  "dev",
		Usage: "Manage a local PostgreSQL development server",
		Commands: []*cli.Command{
			devUp(),
			devDown(),
			devStatus(),
		},
	}
}

func devUp() *cli.Command {
	return &cli.Command{
		Name:  "up",
		Usage: "Start a PostgreSQL development server in Docker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "pg-version",
				Usage: "PostgreSQL version to run",
				Value: docker.DefaultPostgresVersion,
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "host port to bind",
				Value: 5432,
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "host directory to mount as the data directory",
			},
		},
		Action: runDevUp,
	}
}

func devDown() *cli.Command {
	return &cli.Command{
		Name:   "down",
		Usage:  "Stop and remove the PostgreSQL development server",
		Action: runDevDown,
	}
}

func devStatus() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the PostgreSQL development server status",
		Action: runDevStatus,
	}
}

func runDevStatus(ctx context.Context, cmd *cli.Command) error {
	pg, cleanup, err := devContainer(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := pg.Status(ctx)
	if err != nil {
		return errors.Wrap(err, "checking development server status")
	}
	if c == nil {
		fmt.Fprintln(cmd.Writer, "No PostgreSQL development server is currently running")
		return nil
	}

	fmt.Fprintf(cmd.Writer, "%s (%s): %s\n", pg.Name(), c.Image, c.Status)
	fmt.Fprintf(cmd.Writer, "Listening on %s\n", pg.Addr())
	return nil
}

func runDevUp(ctx context.Context, cmd *cli.Command) error {
	pg, cleanup, err := devContainer(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if pg.IsRunning(ctx) {
		fmt.Fprintln(cmd.Writer, "PostgreSQL development server is already running")
		fmt.Fprintln(cmd.Writer, "Use 'pgkeeper dev down' to stop it first")
		return nil
	}

	if dir := cmd.String("data-dir"); dir != "" {
		if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
			return errors.Wrap(err, "creating data directory")
		}
	}

	fmt.Fprintf(cmd.Writer, "Starting PostgreSQL %s container...\n", cmd.String("pg-version"))
	if err := pg.Start(ctx); err != nil {
		return errors.Wrap(err, "starting development server")
	}

	fmt.Fprintf(cmd.Writer, "PostgreSQL development server started on %s\n", pg.Addr())
	fmt.Fprintln(cmd.Writer, "Use 'pgkeeper dev down' to stop it")
	return nil
}

func runDevDown(ctx context.Context, cmd *cli.Command) error {
	pg, cleanup, err := devContainer(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if !pg.IsRunning(ctx) {
		fmt.Fprintln(cmd.Writer, "No PostgreSQL development server is currently running")
		return nil
	}

	if err := pg.Stop(ctx); err != nil {
		return errors.Wrap(err, "stopping development server")
	}

	fmt.Fprintln(cmd.Writer, "PostgreSQL development server stopped")
	return nil
}

func devContainer(cmd *cli.Command) (*docker.Postgres, func(), error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating Docker client")
	}

	opts := docker.PostgresOptions{
		Version: cmd.String("pg-version"),
		Port:    int(cmd.Int("port")),
		DataDir: cmd.String("data-dir"),
	}
	if err := opts.Validate(); err != nil {
		_ = dockerClient.Close()
		return nil, nil, err
	}

	return docker.NewPostgres(docker.NewEngine(dockerClient), opts), func() { _ = dockerClient.Close() }, nil
}
