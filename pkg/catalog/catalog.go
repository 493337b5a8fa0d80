package catalog

import (
	"embed"
	"io/fs"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// Query names understood by Query.
const (
	Roles            = "roles"
	Databases        = "databases"
	Tables           = "tables"
	Views            = "views"
	Sequences        = "sequences"
	Schemas          = "schemas"
	ReplicationSlots = "replication_slots"
	Procedures       = "procedures"
	HBARules         = "hba_rules"
)

//go:embed sql/*.sql
var queries embed.FS

// Query returns the catalog query text for the named object kind, selecting
// the variant appropriate for the given server version. When versioned
// overrides exist (e.g. procedures_11.sql), the one with the highest major
// not exceeding version.Major() wins; otherwise the base file is used.
func Query(name string, version Version) (string, error) {
	overrides, err := fs.Glob(queries, "sql/"+name+"_*.sql")
	if err != nil {
		return "", errors.Wrapf(err, "listing overrides for %s", name)
	}

	file := "sql/" + name + ".sql"
	matcher := regexp.MustCompile("^sql/" + regexp.QuoteMeta(name) + `_(\d+)\.sql$`)

	best := -1
	for _, override := range overrides {
		match := matcher.FindStringSubmatch(override)
		if match == nil {
			continue
		}
		major, _ := strconv.Atoi(match[1])
		if version.Major() >= major && major > best {
			best = major
			file = override
		}
	}

	data, err := queries.ReadFile(file)
	if err != nil {
		return "", errors.Wrapf(err, "no catalog query named %s", name)
	}
	return string(data), nil
}
