package testutil

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Header is the column order of the student-score dataset.
var Header = []string{
	"gender",
	"race_ethnicity",
	"parental_level_of_education",
	"lunch",
	"test_preparation_course",
	"math_score",
	"reading_score",
	"writing_score",
}

var (
	genders    = []string{"female", "male"}
	groups     = []string{"group A", "group B", "group C", "group D", "group E"}
	educations = []string{
		"associate's degree", "bachelor's degree", "high school",
		"master's degree", "some college", "some high school",
	}
	lunches = []string{"free/reduced", "standard"}
	courses = []string{"completed", "none"}
)

// StudentRows generates n deterministic rows of the student-score dataset.
// Every category value appears once n reaches the largest category list.
func StudentRows(n int, seed uint64) [][]string {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // fixtures only
	rows := make([][]string, n)
	for i := range rows {
		reading := 40 + r.IntN(60)
		rows[i] = []string{
			genders[i%len(genders)],
			groups[i%len(groups)],
			educations[i%len(educations)],
			lunches[i%len(lunches)],
			courses[i%len(courses)],
			fmt.Sprint(30 + r.IntN(70)),
			fmt.Sprint(reading),
			fmt.Sprint(reading - 5 + r.IntN(10)),
		}
	}
	return rows
}

// WriteCSV writes header and rows to name inside dir and returns the path.
func WriteCSV(t testing.TB, dir, name string, header []string, rows [][]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for _, row := range rows {
		quoted := make([]string, len(row))
		for i, v := range row {
			if strings.ContainsAny(v, ",\"\n") {
				v = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
			}
			quoted[i] = v
		}
		b.WriteString(strings.Join(quoted, ","))
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// WriteStudentCSV writes n generated student rows to name inside dir.
func WriteStudentCSV(t testing.TB, dir, name string, n int, seed uint64) string {
	t.Helper()
	return WriteCSV(t, dir, name, Header, StudentRows(n, seed))
}
