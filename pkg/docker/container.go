package docker

import (
	"context"
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

const (
	// DefaultPostgresVersion is the PostgreSQL version tag used when
	// PostgresOptions.Version is empty.
	DefaultPostgresVersion = "16"

	// DefaultContainerName is the name given to the development container when
	// PostgresOptions.Name is empty.
	DefaultContainerName = "pgkeeper-postgres"

	defaultPort     = 5432
	defaultUser     = "postgres"
	defaultDatabase = "postgres"
	defaultPassword = "pgkeeper"

	dataMountPath = "/var/lib/postgresql/data"
)

type (
	// PostgresOptions configures a local development PostgreSQL container.
	// Zero values fall back to sensible defaults, so `docker.NewPostgres(engine,
	// docker.PostgresOptions{})` yields a postgres:16-alpine container named
	// pgkeeper-postgres listening on localhost:5432.
	PostgresOptions struct {
		// Version is the PostgreSQL version tag (e.g. "16" or "15.4").
		Version string `yaml:"version"`

		// Name is the container name. Stop and IsRunning address the container
		// by this name.
		Name string `yaml:"name"`

		// Port is the host port bound to the container's 5432. A value <= 0
		// binds the default 5432.
		Port int `yaml:"port"`

		// Database, User, and Password seed the initial database via the
		// official image's POSTGRES_* environment variables.
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`

		// DataDir, when set, is a host directory mounted as the container's
		// data directory so the cluster survives container restarts.
		DataDir string `yaml:"dataDir"`
	}

	// Postgres manages a single PostgreSQL container for local development,
	// built on top of Engine.
	Postgres struct {
		engine *Engine
		opts   PostgresOptions
	}
)

// NewPostgres creates a development PostgreSQL container manager. Unset
// options are filled with defaults; the container is not created until Start
// is called.
func NewPostgres(engine *Engine, opts PostgresOptions) *Postgres {
	if opts.Version == "" {
		opts.Version = DefaultPostgresVersion
	}
	if opts.Name == "" {
		opts.Name = DefaultContainerName
	}
	if opts.Port <= 0 {
		opts.Port = defaultPort
	}
	if opts.Database == "" {
		opts.Database = defaultDatabase
	}
	if opts.User == "" {
		opts.User = defaultUser
	}
	if opts.Password == "" {
		opts.Password = defaultPassword
	}

	return &Postgres{engine: engine, opts: opts}
}

// Image returns the image reference the container runs, e.g. "postgres:16-alpine".
func (p *Postgres) Image() string {
	return fmt.Sprintf("postgres:%s-alpine", p.opts.Version)
}

// Name returns the container name.
func (p *Postgres) Name() string { return p.opts.Name }

// Start pulls the image and creates and starts the container. Starting a
// container that is already running is an error surfaced by the Docker daemon.
func (p *Postgres) Start(ctx context.Context) error {
	if err := p.engine.Pull(ctx, p.Image()); err != nil {
		return err
	}

	opts := ContainerOptions{
		Name:  p.opts.Name,
		Image: p.Image(),
		Env: map[string]string{
			"POSTGRES_DB":       p.opts.Database,
			"POSTGRES_USER":     p.opts.User,
			"POSTGRES_PASSWORD": p.opts.Password,
		},
		Ports: map[int]int{p.opts.Port: defaultPort},
	}

	if p.opts.DataDir != "" {
		opts.Volumes = []ContainerVolume{
			{HostPath: p.opts.DataDir, ContainerPath: dataMountPath},
		}
	}

	return p.engine.Start(ctx, opts)
}

// Stop stops and removes the container.
func (p *Postgres) Stop(ctx context.Context) error {
	return p.engine.Stop(ctx, p.opts.Name)
}

// Status scans the running containers for the development server and returns
// its state, or nil when no container with the configured name is up.
func (p *Postgres) Status(ctx context.Context) (*Container, error) {
	list, err := p.engine.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		if slices.Contains(c.Names, p.opts.Name) {
			return c, nil
		}
	}
	return nil, nil
}

// IsRunning reports whether the container exists and is in the running state.
// A container that cannot be inspected at all is reported as not running.
func (p *Postgres) IsRunning(ctx context.Context) bool {
	c, err := p.engine.Get(ctx, p.opts.Name)
	if err != nil {
		return false
	}

	return c.State == "running"
}

// DSN returns a keyword/value connection string for the container. It
// contains the configured password, so it must never be logged.
func (p *Postgres) DSN() string {
	return fmt.Sprintf(
		"host=localhost port=%d dbname=%s user=%s password=%s sslmode=disable",
		p.opts.Port,
		p.opts.Database,
		p.opts.User,
		p.opts.Password,
	)
}

// Addr returns the host address of the container without any credentials,
// suitable for logs and user-facing messages.
func (p *Postgres) Addr() string {
	return fmt.Sprintf("localhost:%d", p.opts.Port)
}

// Validate checks the options for values the official image would reject.
func (o PostgresOptions) Validate() error {
	if o.Port > 65535 {
		return errors.Errorf("invalid host port: %d", o.Port)
	}

	return nil
}
