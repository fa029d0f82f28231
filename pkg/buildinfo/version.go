// Package buildinfo holds the version stamped into covidchart at link time:
//
//	go build -ldflags "-X github.com/matzehuels/covidchart/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/covidchart/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/covidchart/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// ShortCommit returns the first seven characters of [Commit].
func ShortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}

// Template is the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, built %s)\n", Version, ShortCommit(), Date)
}

// UserAgent identifies covidchart to the prediction service.
func UserAgent() string {
	return fmt.Sprintf("covidchart/%s (+%s)", Version, ShortCommit())
}
