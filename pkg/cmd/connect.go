package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/adapter/pgx"
	"github.com/pseudomuto/pgkeeper/pkg/adapter/stdsql"
	"github.com/pseudomuto/pgkeeper/pkg/cluster"
	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/pseudomuto/pgkeeper/pkg/objects"
	"github.com/urfave/cli/v3"

	// Registers the "postgres" driver for --driver=postgres connections.
	_ "github.com/lib/pq"
)

// connection captures everything needed to open a cluster session, resolved
// from the global flags and the active profile. The DSN carries credentials
// and must never appear in logs or error messages.
type connection struct {
	dsn      string
	driver   string
	become   string
	strategy objects.LoadStrategy
	display  string
}

func resolveConnection(cmd *cli.Command, cfg *config.Config) (*connection, error) {
	conn := &connection{
		driver:   cmd.String("driver"),
		strategy: objects.LoadLazy,
		display:  "custom DSN",
	}

	if dsn := cmd.String("dsn"); dsn != "" {
		conn.dsn = dsn
		return conn, conn.overrideStrategy(cmd)
	}

	if cfg == nil {
		return nil, errors.Errorf("%s not found and no --dsn given", config.DefaultFile)
	}

	profile, err := cfg.Profile(cmd.String("profile"))
	if err != nil {
		return nil, err
	}

	strategy, err := profile.Strategy()
	if err != nil {
		return nil, err
	}

	conn.dsn = profile.DSN()
	conn.become = profile.Become
	conn.strategy = strategy
	conn.display = profile.String()
	return conn, conn.overrideStrategy(cmd)
}

// overrideStrategy applies the global --strategy flag on top of whatever the
// profile selected.
func (c *connection) overrideStrategy(cmd *cli.Command) error {
	name := cmd.String("strategy")
	if name == "" {
		return nil
	}

	strategy, err := config.Profile{LoadStrategy: name}.Strategy()
	if err != nil {
		return err
	}
	c.strategy = strategy
	return nil
}

// openCluster connects using the resolved connection details and returns the
// session plus a cleanup function. Connection failures are reported against
// the credential-free display name, never the DSN.
func openCluster(ctx context.Context, cmd *cli.Command, cfg *config.Config) (*cluster.Cluster, func(), error) {
	conn, err := resolveConnection(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}

	var adpt adapter.Adapter
	switch conn.driver {
	case "", "pgx":
		adpt, err = pgx.Connect(ctx, conn.dsn)
	case "postgres":
		adpt, err = stdsql.Open(ctx, "postgres", conn.dsn)
	default:
		return nil, nil, errors.Errorf("unknown driver %q", conn.driver)
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "connecting to %s", conn.display)
	}

	opts := []cluster.Option{cluster.WithLoadStrategy(conn.strategy)}
	if conn.become != "" {
		opts = append(opts, cluster.Become(conn.become))
	}

	c, err := cluster.Open(ctx, adpt, opts...)
	if err != nil {
		_ = adpt.Close(ctx)
		return nil, nil, errors.Wrapf(err, "opening session on %s", conn.display)
	}

	return c, func() { _ = c.Close(ctx) }, nil
}

func driverFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "driver",
		Usage: "database driver to use (pgx or postgres)",
		Value: "pgx",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}
}
