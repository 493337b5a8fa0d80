package backup_test

import (
	"context"
	"testing"

	. "github.com/pseudomuto/pgkeeper/pkg/backup"
	"github.com/pseudomuto/pgkeeper/pkg/utils"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	commands []string
}

func (f *fakeRunner) RunOSCommand(_ context.Context, command string) (string, error) {
	f.commands = append(f.commands, command)
	return "", nil
}

func TestFileBackup(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeRunner) *FileBackup
		path  string
		want  string
	}{
		{
			name:  "defaults",
			setup: func(r *fakeRunner) *FileBackup { return NewFileBackup(r) },
			path:  "/tmp/foo",
			want:  `pg_dump --format=c -d "foo" > "/tmp/foo"`,
		},
		{
			name:  "binary override",
			setup: func(r *fakeRunner) *FileBackup { return NewFileBackup(r, WithBinary("/usr/lib/pg/pg_dump")) },
			path:  "/tmp/foo",
			want:  `/usr/lib/pg/pg_dump --format=c -d "foo" > "/tmp/foo"`,
		},
		{
			name:  "relative path",
			setup: func(r *fakeRunner) *FileBackup { return NewFileBackup(r, WithBasePath("/tmp")) },
			path:  "bar",
			want:  `pg_dump --format=c -d "foo" > "/tmp/bar"`,
		},
		{
			name: "shared flags",
			setup: func(r *fakeRunner) *FileBackup {
				b := NewFileBackup(r)
				b.Options.SchemaOnly = true
				b.Options.Tables = []string{"a", "b"}
				b.Options.Role = "mahrole"
				return b
			},
			path: "/tmp/foo",
			want: `pg_dump --schema-only --table="a" --table="b" --format=c --role="mahrole" -d "foo" > "/tmp/foo"`,
		},
		{
			name: "dump flags",
			setup: func(r *fakeRunner) *FileBackup {
				b := NewFileBackup(r)
				b.Options.Compress = true
				b.Options.Blobs = false
				b.Options.ExcludeTableData = []string{"a"}
				return b
			},
			path: "/tmp/foo",
			want: `pg_dump --format=c --compress=5 --no-blobs --exclude-table-data="a" -d "foo" > "/tmp/foo"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			require.NoError(t, tt.setup(runner).Backup(context.Background(), "foo", tt.path))
			require.Equal(t, []string{tt.want}, runner.commands)
		})
	}
}

func TestGCPBackup(t *testing.T) {
	runner := &fakeRunner{}
	b := NewGCPBackup(runner, WithBucket("gs://tmp/"))
	require.NoError(t, b.Backup(context.Background(), "foo", "bar"))
	require.Equal(t, []string{`pg_dump --format=c -d "foo" | gsutil cp - "gs://tmp/bar"`}, runner.commands)
}

func TestFileRestore(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeRunner) *FileRestore
		path  string
		want  string
	}{
		{
			name:  "defaults",
			setup: func(r *fakeRunner) *FileRestore { return NewFileRestore(r) },
			path:  "/tmp/foo",
			want:  `pg_restore  -d "foo" "/tmp/foo"`,
		},
		{
			name:  "relative path",
			setup: func(r *fakeRunner) *FileRestore { return NewFileRestore(r, WithBasePath("/tmp")) },
			path:  "bar",
			want:  `pg_restore  -d "foo" "/tmp/bar"`,
		},
		{
			name: "restore flags",
			setup: func(r *fakeRunner) *FileRestore {
				res := NewFileRestore(r)
				res.Options.Indexes = []string{"a", "b"}
				res.Options.Jobs = utils.Ptr(4)
				res.Options.DisableTriggers = true
				return res
			},
			path: "/tmp/foo",
			want: `pg_restore --index="a" --index="b" --jobs=4 --disable-triggers -d "foo" "/tmp/foo"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			require.NoError(t, tt.setup(runner).Restore(context.Background(), "foo", tt.path))
			require.Equal(t, []string{tt.want}, runner.commands)
		})
	}
}

func TestGCPRestoreStagesAndCleansUp(t *testing.T) {
	runner := &fakeRunner{}
	r := NewGCPRestore(runner)
	r.Options.SchemaOnly = true
	r.Options.Role = "mahrole"

	require.NoError(t, r.Restore(context.Background(), "foo", "gs://tmp/foo"))
	require.Equal(t, []string{
		`gsutil cp "gs://tmp/foo" "/tmp/foo"`,
		`pg_restore --schema-only --role="mahrole" -d "foo" "/tmp/foo"`,
		`rm -f "/tmp/foo"`,
	}, runner.commands)
}

func TestShellEnvJoinPath(t *testing.T) {
	var env ShellEnv
	tests := []struct {
		parts []string
		want  string
	}{
		{parts: []string{"foo"}, want: "foo"},
		{parts: []string{"/foo"}, want: "/foo"},
		{parts: []string{"foo/"}, want: "foo"},
		{parts: []string{"foo", "bar"}, want: "foo/bar"},
		{parts: []string{"foo/", "bar"}, want: "foo/bar"},
		{parts: []string{"", "bar"}, want: "bar"},
		{parts: []string{"/foo", ""}, want: "/foo"},
		{parts: []string{"/foo", "bar", "zar"}, want: "/foo/bar/zar"},
		{parts: []string{"gs://foo/", "bar"}, want: "gs://foo/bar"},
		{parts: []string{"gs://foo", "bar"}, want: "gs://foo/bar"},
		{parts: []string{"", "gs://foo"}, want: "gs://foo"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, env.JoinPath(tt.parts...))
		})
	}
}
