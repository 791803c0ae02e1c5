package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// DefaultDir is where `migrate -cmd=create` writes new files.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

// Command is a schema operation that needs a live database.
type Command string

const (
	CommandUp     Command = "up"
	CommandDown   Command = "down"
	CommandStatus Command = "status"
	CommandTo     Command = "to"
)

// ParseCommand maps a CLI value onto a Command.
func ParseCommand(v string) (Command, error) {
	switch c := Command(v); c {
	case CommandUp, CommandDown, CommandStatus, CommandTo:
		return c, nil
	}
	return "", fmt.Errorf("unknown migrate command %q", v)
}

// ParseVersion accepts the 14-digit timestamp prefix of a migration file.
func ParseVersion(v string) (int64, error) {
	if !fileNameRe.MatchString(v + "_x.sql") {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", v)
	}
	return strconv.ParseInt(v, 10, 64)
}

func migrationsFS(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, embeddedDir)
	}
	return os.DirFS(dir), nil
}

func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	fsys, err := migrationsFS(dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Apply runs cmd against db using the migrations in dir, or the embedded set
// when dir is empty. target is only read by CommandTo, which moves up or down
// depending on the current version. A line per migration is written to out.
func Apply(ctx context.Context, db *sql.DB, dir string, cmd Command, target int64, out io.Writer) error {
	p, err := newProvider(db, dir)
	if err != nil {
		return err
	}
	if out == nil {
		out = io.Discard
	}

	switch cmd {
	case CommandUp:
		results, err := p.Up(ctx)
		report(out, results...)
		return wrapGoose(cmd, err)
	case CommandDown:
		result, err := p.Down(ctx)
		if result != nil {
			report(out, result)
		}
		return wrapGoose(cmd, err)
	case CommandStatus:
		statuses, err := p.Status(ctx)
		if err != nil {
			return wrapGoose(cmd, err)
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(out, "%-20s %s\n", applied, s.Source.Path)
		}
		return nil
	case CommandTo:
		current, err := p.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		var results []*goose.MigrationResult
		switch {
		case target == current:
			return nil
		case target > current:
			results, err = p.UpTo(ctx, target)
		default:
			results, err = p.DownTo(ctx, target)
		}
		report(out, results...)
		return wrapGoose(cmd, err)
	}
	return fmt.Errorf("unknown migrate command %q", cmd)
}

func report(out io.Writer, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fmt.Fprintf(out, "%-4s %s (%s)\n", r.Direction, r.Source.Path, r.Duration.Round(1e6))
	}
}

func wrapGoose(cmd Command, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", cmd, err)
}
