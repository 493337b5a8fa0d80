package docker_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/docker"
	"github.com/stretchr/testify/require"
)

type fakeDockerClient struct {
	pulled  []string
	started []string
	stopped []string
	removed []string

	config  *container.Config
	hostCfg *container.HostConfig

	containers []container.Summary
	inspect    container.InspectResponse
	inspectErr error
}

func (f *fakeDockerClient) ImagePull(_ context.Context, img string, _ image.PullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, img)
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeDockerClient) ContainerCreate(
	_ context.Context,
	cfg *container.Config,
	hostCfg *container.HostConfig,
	_ *network.NetworkingConfig,
	_ *v1.Platform,
	name string,
) (container.CreateResponse, error) {
	f.config = cfg
	f.hostCfg = hostCfg
	return container.CreateResponse{ID: "id-" + name}, nil
}

func (f *fakeDockerClient) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeDockerClient) ContainerList(_ context.Context, _ container.ListOptions) ([]container.Summary, error) {
	return f.containers, nil
}

func (f *fakeDockerClient) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeDockerClient) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeDockerClient) ContainerInspect(_ context.Context, _ string) (container.InspectResponse, error) {
	if f.inspectErr != nil {
		return container.InspectResponse{}, f.inspectErr
	}
	return f.inspect, nil
}

func TestNewPostgresDefaults(t *testing.T) {
	p := docker.NewPostgres(docker.NewEngine(&fakeDockerClient{}), docker.PostgresOptions{})

	require.Equal(t, "postgres:16-alpine", p.Image())
	require.Equal(t, "pgkeeper-postgres", p.Name())
	require.Equal(t, "localhost:5432", p.Addr())
	require.Equal(
		t,
		"host=localhost port=5432 dbname=postgres user=postgres password=pgkeeper sslmode=disable",
		p.DSN(),
	)
}

func TestPostgresStart(t *testing.T) {
	cli := &fakeDockerClient{}
	p := docker.NewPostgres(docker.NewEngine(cli), docker.PostgresOptions{
		Version:  "15.4",
		Port:     15432,
		Password: "hunter2",
		DataDir:  "/srv/pgdata",
	})

	require.NoError(t, p.Start(context.Background()))
	require.Equal(t, []string{"postgres:15.4-alpine"}, cli.pulled)
	require.Equal(t, []string{"id-pgkeeper-postgres"}, cli.started)

	require.Equal(t, "postgres:15.4-alpine", cli.config.Image)
	require.Contains(t, cli.config.Env, "POSTGRES_PASSWORD=hunter2")
	require.Contains(t, cli.config.Env, "POSTGRES_USER=postgres")
	require.Contains(t, cli.config.Env, "POSTGRES_DB=postgres")

	bindings := cli.hostCfg.PortBindings[nat.Port("5432/tcp")]
	require.Len(t, bindings, 1)
	require.Equal(t, "15432", bindings[0].HostPort)
	require.Equal(t, []string{"/srv/pgdata:/var/lib/postgresql/data"}, cli.hostCfg.Binds)
}

func TestPostgresStop(t *testing.T) {
	cli := &fakeDockerClient{}
	p := docker.NewPostgres(docker.NewEngine(cli), docker.PostgresOptions{Name: "scratch"})

	require.NoError(t, p.Stop(context.Background()))
	require.Equal(t, []string{"scratch"}, cli.stopped)
	require.Equal(t, []string{"scratch"}, cli.removed)
}

func TestPostgresIsRunning(t *testing.T) {
	tests := []struct {
		name    string
		inspect container.InspectResponse
		err     error
		want    bool
	}{
		{
			name: "running",
			inspect: container.InspectResponse{
				ContainerJSONBase: &container.ContainerJSONBase{
					Name:  "/pgkeeper-postgres",
					State: &container.State{Status: "running"},
				},
				Config: &container.Config{Image: "postgres:16-alpine"},
			},
			want: true,
		},
		{
			name: "exited",
			inspect: container.InspectResponse{
				ContainerJSONBase: &container.ContainerJSONBase{
					Name:  "/pgkeeper-postgres",
					State: &container.State{Status: "exited"},
				},
				Config: &container.Config{Image: "postgres:16-alpine"},
			},
			want: false,
		},
		{
			name: "missing",
			err:  errors.New("No such container: pgkeeper-postgres"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := &fakeDockerClient{inspect: tt.inspect, inspectErr: tt.err}
			p := docker.NewPostgres(docker.NewEngine(cli), docker.PostgresOptions{})
			require.Equal(t, tt.want, p.IsRunning(context.Background()))
		})
	}
}

func TestEngineList(t *testing.T) {
	cli := &fakeDockerClient{
		containers: []container.Summary{
			{
				Names:  []string{"/pgkeeper-postgres"},
				Image:  "postgres:16-alpine",
				State:  "running",
				Status: "Up 5 minutes",
			},
		},
	}

	list, err := docker.NewEngine(cli).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, []string{"pgkeeper-postgres"}, list[0].Names)
	require.Equal(t, "postgres:16-alpine", list[0].Image)
	require.Equal(t, "running", list[0].State)
}

func TestPostgresStatus(t *testing.T) {
	cli := &fakeDockerClient{
		containers: []container.Summary{
			{
				Names:  []string{"/unrelated"},
				Image:  "redis:7",
				State:  "running",
				Status: "Up 2 hours",
			},
			{
				Names:  []string{"/pgkeeper-postgres"},
				Image:  "postgres:16-alpine",
				State:  "running",
				Status: "Up 5 minutes",
			},
		},
	}

	p := docker.NewPostgres(docker.NewEngine(cli), docker.PostgresOptions{})
	c, err := p.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, "postgres:16-alpine", c.Image)
	require.Equal(t, "Up 5 minutes", c.Status)

	p = docker.NewPostgres(docker.NewEngine(cli), docker.PostgresOptions{Name: "other"})
	c, err = p.Status(context.Background())
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestPostgresOptionsValidate(t *testing.T) {
	require.NoError(t, docker.PostgresOptions{Port: 5432}.Validate())
	require.Error(t, docker.PostgresOptions{Port: 75432}.Validate())
}
