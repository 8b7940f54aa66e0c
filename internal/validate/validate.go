// Package validate implements the Validation Engine: a pure, total
// function from declared Expectations and observed Actual to a list of
// Check records, each carrying a human-readable reasoning string.
package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ingestlab/ingest-harness/internal/catalog"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

// Evaluate always emits a vault_file_created check, then one Check per
// declared expectation facet in expected against actual. The engine never
// short-circuits: every facet present in expected produces exactly one
// check (or one per element, for set-valued facets); a passed test
// therefore means a vault file was recorded and every declared facet held.
func Evaluate(expected catalog.Expectations, actual schema.Actual) []schema.Check {
	var checks []schema.Check

	checks = append(checks, vaultFileCreated(actual))

	if expected.Pipeline != "" {
		checks = append(checks, pipelineCheck(expected.Pipeline, actual.Pipeline))
	}
	for _, tag := range expected.RequiredTags {
		checks = append(checks, tagPresent(tag, actual.Tags))
	}
	for _, tag := range expected.ForbiddenTags {
		checks = append(checks, tagAbsent(tag, actual.Tags))
	}
	for key, want := range expected.Frontmatter {
		checks = append(checks, frontmatterCheck(key, want, actual.Frontmatter))
	}
	if expected.FilenamePattern != "" {
		checks = append(checks, filenamePattern(expected.FilenamePattern, actual.VaultPath))
	}
	if expected.TargetFileDate != "" {
		checks = append(checks, filenameDate(expected.TargetFileDate, actual.VaultPath))
	}
	for _, substr := range expected.ContentContains {
		checks = append(checks, contentContains(substr, actual.Content))
	}
	for _, substr := range expected.ContentNotContains {
		checks = append(checks, contentAbsent(substr, actual.Content))
	}
	for _, substr := range expected.VerboseContains {
		checks = append(checks, verboseContains(substr, actual.Verbose))
	}
	if expected.ArchiveFilenamePattern != "" {
		checks = append(checks, archiveFilenamePattern(expected.ArchiveFilenamePattern, actual.ArchivePath))
	}
	if expected.ArchiveSync {
		checks = append(checks, archiveExists(actual.ArchiveExists, actual.ArchivePath))
	}
	if expected.NotificationSeverity != "" {
		checks = append(checks, eventsSeverity(expected.NotificationSeverity, actual.Notification.Severity))
	}
	for _, field := range expected.NotificationFields {
		checks = append(checks, eventsHasField(field, actual.Notification))
	}

	return checks
}

// Passed reports whether every check in checks passed.
func Passed(checks []schema.Check) bool {
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

func vaultFileCreated(actual schema.Actual) schema.Check {
	ok := strings.TrimSpace(actual.VaultPath) != ""
	reasoning := fmt.Sprintf("Examined whether a vault file path was recorded — found %q.", actual.VaultPath)
	if !ok {
		reasoning = "Examined whether a vault file path was recorded — none was produced."
	}
	return schema.Check{Name: "vault_file_created", Passed: ok, Expected: "non-empty vault path", Actual: actual.VaultPath, Reasoning: reasoning}
}

func pipelineCheck(want, got string) schema.Check {
	ok := strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
	return schema.Check{
		Name:      "pipeline:" + want,
		Passed:    ok,
		Expected:  want,
		Actual:    got,
		Reasoning: fmt.Sprintf("Examined the notification's pipeline field — expected %q, observed %q.", want, got),
	}
}

func tagPresent(tag string, tags []string) schema.Check {
	ok := containsFold(tags, tag)
	reasoning := fmt.Sprintf("Examined frontmatter tags %v — found expected tag %s.", tags, tag)
	if !ok {
		reasoning = fmt.Sprintf("Examined frontmatter tags %v — expected tag %s was missing.", tags, tag)
	}
	return schema.Check{Name: "tag_present:" + tag, Passed: ok, Expected: tag, Actual: strings.Join(tags, ","), Reasoning: reasoning}
}

func tagAbsent(tag string, tags []string) schema.Check {
	present := containsFold(tags, tag)
	reasoning := fmt.Sprintf("Examined frontmatter tags %v — forbidden tag %s is absent, as required.", tags, tag)
	if present {
		reasoning = fmt.Sprintf("Examined frontmatter tags %v — forbidden tag %s was present.", tags, tag)
	}
	return schema.Check{Name: "tag_absent:" + tag, Passed: !present, Expected: "absent:" + tag, Actual: strings.Join(tags, ","), Reasoning: reasoning}
}

func frontmatterCheck(key, want string, frontmatter map[string]string) schema.Check {
	got, ok := frontmatter[key]
	match := ok && strings.TrimSpace(got) == strings.TrimSpace(want)
	reasoning := fmt.Sprintf("Examined frontmatter key %q — expected %q, observed %q.", key, want, got)
	return schema.Check{Name: "frontmatter:" + key, Passed: match, Expected: want, Actual: got, Reasoning: reasoning}
}

func filenamePattern(pattern, vaultPath string) schema.Check {
	name := filepath.Base(vaultPath)
	ok := matchPattern(pattern, name)
	return schema.Check{
		Name:      "filename_pattern",
		Passed:    ok,
		Expected:  pattern,
		Actual:    name,
		Reasoning: fmt.Sprintf("Examined the vault filename %q against pattern %q.", name, pattern),
	}
}

func filenameDate(date, vaultPath string) schema.Check {
	name := filepath.Base(vaultPath)
	ok := strings.Contains(name, date)
	return schema.Check{
		Name:      "filename_date:" + date,
		Passed:    ok,
		Expected:  date,
		Actual:    name,
		Reasoning: fmt.Sprintf("Examined the vault filename %q for target date %s.", name, date),
	}
}

func contentContains(substr, content string) schema.Check {
	ok := strings.Contains(strings.ToLower(content), strings.ToLower(substr))
	reasoning := fmt.Sprintf("Examined vault content for required substring %q — found.", substr)
	if !ok {
		reasoning = fmt.Sprintf("Examined vault content for required substring %q — not found.", substr)
	}
	return schema.Check{Name: "content_contains:" + substr, Passed: ok, Expected: substr, Reasoning: reasoning}
}

func contentAbsent(substr, content string) schema.Check {
	present := strings.Contains(strings.ToLower(content), strings.ToLower(substr))
	reasoning := fmt.Sprintf("Examined vault content for forbidden substring %q — absent, as required.", substr)
	if present {
		reasoning = fmt.Sprintf("Examined vault content for forbidden substring %q — it was present.", substr)
	}
	return schema.Check{Name: "content_absent:" + substr, Passed: !present, Expected: "absent:" + substr, Reasoning: reasoning}
}

func verboseContains(substr, verbose string) schema.Check {
	ok := strings.Contains(strings.ToLower(verbose), strings.ToLower(substr))
	return schema.Check{
		Name:      "verbose_contains:" + substr,
		Passed:    ok,
		Expected:  substr,
		Reasoning: fmt.Sprintf("Examined verbose CLI output for substring %q.", substr),
	}
}

func archiveFilenamePattern(pattern, archivePath string) schema.Check {
	name := filepath.Base(archivePath)
	ok := matchPattern(pattern, name)
	return schema.Check{
		Name:      "archive_filename_pattern",
		Passed:    ok,
		Expected:  pattern,
		Actual:    name,
		Reasoning: fmt.Sprintf("Examined the archive filename %q against pattern %q.", name, pattern),
	}
}

func archiveExists(exists bool, archivePath string) schema.Check {
	reasoning := fmt.Sprintf("Probed the archive collaborator for %q — present.", archivePath)
	if !exists {
		reasoning = fmt.Sprintf("Probed the archive collaborator for %q — missing.", archivePath)
	}
	return schema.Check{Name: "archive_exists", Passed: exists, Actual: archivePath, Reasoning: reasoning}
}

func eventsSeverity(want, got string) schema.Check {
	ok := strings.EqualFold(want, got)
	return schema.Check{
		Name:      "events_severity",
		Passed:    ok,
		Expected:  want,
		Actual:    got,
		Reasoning: fmt.Sprintf("Examined the notification's severity field — expected %q, observed %q.", want, got),
	}
}

func eventsHasField(name string, n schema.Notification) schema.Check {
	ok := n.HasField(name)
	reasoning := fmt.Sprintf("Examined the notification for field %q — present.", name)
	if !ok {
		reasoning = fmt.Sprintf("Examined the notification for field %q — missing.", name)
	}
	return schema.Check{Name: "events_has_field:" + name, Passed: ok, Expected: name, Reasoning: reasoning}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

// matchPattern: anchored full-string regex
// only when the pattern itself uses a ^ or $ marker, otherwise treated as a
// substring regex.
func matchPattern(pattern, s string) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false
	}
	if strings.ContainsAny(pattern, "^$") {
		return re.MatchString(s)
	}
	return re.FindStringIndex(s) != nil
}
