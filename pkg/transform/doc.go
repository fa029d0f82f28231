// Package transform computes plotted coordinates for resolved series.
//
// [Apply] is the alignment and scaling engine of the chart pipeline. Given the
// resolved records of one render pass it:
//
//  1. trims observed series to start at the first day with at least
//     [DefaultThreshold] active cases (relative axis only),
//  2. aligns every prediction with the observed series of the same country,
//     trimming prediction days that predate the plotted window,
//  3. scales values by the normalization mode ([YRatio]),
//  4. places the peak and split markers and collects the split boundaries
//     used for background bands.
//
// Apply is a pure function: it never modifies the input records and produces
// fresh slices on every call. Series that cannot be plotted are reported in
// [Result.Skipped] instead of failing the whole render.
package transform
