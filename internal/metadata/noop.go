package metadata

import "time"

// NoopSink discards every record. Used by tests and call sites that don't
// care about observability output.
type NoopSink struct{}

var _ MetadataSink = (*NoopSink)(nil)
var _ CrawlFinalizer = (*NoopSink)(nil)

func (NoopSink) RecordFetch(string, int, time.Duration, string, int, int) {}
func (NoopSink) RecordAssetFetch(string, int, time.Duration, int)         {}
func (NoopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute) {
}
func (NoopSink) RecordArtifact(ArtifactKind, string, []Attribute) {}
func (NoopSink) RecordFinalCrawlStats(int, int, int, time.Duration) {}
