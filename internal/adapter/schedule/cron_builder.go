package schedule

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/robfig/cron/v3"
)

type CronBuilder struct {
	binary string
	logDir string
}

func NewCronBuilder(binary, logDir string) *CronBuilder {
	return &CronBuilder{
		binary: binary,
		logDir: logDir,
	}
}

// Parse validates a standard five-field cron expression.
func Parse(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid schedule %q: %v", domain.ErrConfiguration, expr, err)
	}
	return sched, nil
}

// NextRuns returns the next n activation times of expr after from.
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	runs := make([]time.Time, 0, n)
	next := from
	for range n {
		next = sched.Next(next)
		if next.IsZero() {
			break
		}
		runs = append(runs, next)
	}
	return runs, nil
}

// GenerateCronCommand generates the backup command cron runs for repo.
func (c *CronBuilder) GenerateCronCommand(repo *domain.Repository) string {
	backupCmd := fmt.Sprintf("%s -C %s backup", c.binary, quote(repo.Root))
	if c.logDir == "" {
		return backupCmd
	}
	logFile := filepath.Join(c.logDir, fmt.Sprintf("backup-%s.log", logName(repo.Root)))
	return fmt.Sprintf("%s >> %s 2>&1", backupCmd, quote(logFile))
}

// BuildLine returns the crontab line for repo. Repositories without a
// schedule are an error.
func (c *CronBuilder) BuildLine(repo *domain.Repository) (string, error) {
	if repo.Schedule == "" {
		return "", fmt.Errorf("%w: no schedule in %s", domain.ErrConfiguration, repo.MarkerPath())
	}
	if _, err := Parse(repo.Schedule); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s", repo.Schedule, c.GenerateCronCommand(repo)), nil
}

// BuildCronFileContent builds crontab content for repos. Repositories
// without a valid schedule are listed as comments.
func (c *CronBuilder) BuildCronFileContent(repos []*domain.Repository, now time.Time) string {
	lines := []string{
		"# snapchain backup schedules",
		"# Auto-generated - do not edit manually",
		fmt.Sprintf("# Last updated: %s", now.UTC().Format("2006-01-02 15:04:05 UTC")),
		"",
	}

	for _, repo := range repos {
		line, err := c.BuildLine(repo)
		if err != nil {
			lines = append(lines, fmt.Sprintf("# ERROR for %s: %s", repo.Root, err.Error()))
			lines = append(lines, "")
			continue
		}
		lines = append(lines, fmt.Sprintf("# Repository: %s", repo.Root))
		lines = append(lines, line)
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// logName flattens a repository root into a file name.
func logName(root string) string {
	name := strings.Trim(filepath.ToSlash(root), "/")
	if name == "" {
		return "root"
	}
	return strings.ReplaceAll(name, "/", "-")
}

func quote(s string) string {
	if !strings.ContainsAny(s, " \t'\"$`\\") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
