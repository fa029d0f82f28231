package cache

import "fmt"

// Keyer names cache entries.
type Keyer interface {
	// HTTPKey names a cached HTTP response body.
	HTTPKey(namespace, key string) string

	// ArtifactKey names a rendered chart artifact.
	ArtifactKey(chartHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return fmt.Sprintf("http:%s:%s", namespace, key)
}

// ArtifactKey hashes the chart hash together with opts.
func (DefaultKeyer) ArtifactKey(chartHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", chartHash, opts)
}
