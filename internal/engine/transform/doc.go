// Package transform defines the atomic edits applied to documents and the
// position maps they produce.
//
// A Step is a serializable, invertible change: ReplaceStep replaces a range
// with a Slice, AddMarkStep and RemoveMarkStep change the marks on inline
// content. Applying a step yields a new document or a failure message and
// never mutates its input.
//
// Every step exposes a StepMap describing how it shifts positions. A Mapping
// chains step maps and tracks mirror pairs (a step and its inverse) so that
// positions deleted by one map and restored by its mirror survive the trip.
// Steps made against an older document are moved forward with Step.Map,
// which returns nil when the step's range has been deleted.
//
// Transform accumulates steps, the intermediate documents and the combined
// mapping, and offers the higher-level edits built from them.
package transform
