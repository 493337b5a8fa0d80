// Package docker runs throwaway PostgreSQL instances for local development
// and experimentation.
//
// Engine wraps the Docker API client with the small set of operations the
// tool needs (pull, create/start, list, inspect, stop/remove). Postgres
// builds on Engine to manage a single development container running the
// official postgres image.
//
// # Usage Example
//
//	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer cli.Close()
//
//	pg := docker.NewPostgres(docker.NewEngine(cli), docker.PostgresOptions{
//		Version: "16",
//		Port:    15432,
//	})
//
//	ctx := context.Background()
//	if err := pg.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer pg.Stop(ctx)
//
//	db, err := sql.Open("postgres", pg.DSN())
//
// The container's data directory can be mounted from the host via
// PostgresOptions.DataDir so the cluster survives container restarts.
package docker
