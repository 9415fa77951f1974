package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	filenameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	unsafeRe   = regexp.MustCompile(`[^a-z0-9]+`)

	upMarker   = []byte("-- +goose Up")
	downMarker = []byte("-- +goose Down")
)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// Create writes an empty goose migration named <version>_<slug>.sql into dir
// and returns its path. The version is the current UTC time.
func Create(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("migrate: dir is required")
	}
	slug := strings.Trim(unsafeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migrate: name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: create %q: %w", dir, err)
	}

	path := filepath.Join(dir, now.UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, sqlTemplate, slug); err != nil {
		return "", fmt.Errorf("migrate: write %q: %w", path, err)
	}
	return path, nil
}

// Validate checks that every .sql file in dir has a well formed, unique
// version prefix and both goose section markers. All problems are reported
// together.
func Validate(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("migrate: read %q: %w", dir, err)
	}

	var problems error
	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		match := filenameRe.FindStringSubmatch(name)
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: filename must look like YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if _, err := time.Parse(versionLayout, match[1]); err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s is not a timestamp", name, match[1]))
		}
		if other, dup := versions[match[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, match[1], other))
		}
		versions[match[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		up, down := bytes.Index(body, upMarker), bytes.Index(body, downMarker)
		switch {
		case up < 0:
			problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, upMarker))
		case down < 0:
			problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, downMarker))
		case down < up:
			problems = multierr.Append(problems, fmt.Errorf("%s: down section precedes up section", name))
		}
	}
	if len(versions) == 0 && problems == nil {
		problems = multierr.Append(problems, fmt.Errorf("no migrations in %q", dir))
	}
	return problems
}
