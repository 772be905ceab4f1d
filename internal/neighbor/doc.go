// Package neighbor builds periodic neighbor lists.
//
// Two strategies produce the same [Map]:
//
//   - [Grid]: the cell is partitioned into bins at least as thick as the
//     largest search radius, and each atom scans only its own bin and the
//     surrounding ones, wrapping across periodic faces. Expected O(n).
//   - [BruteForce]: every pair over every periodic image in range. O(n²).
//
// [Choose] selects the brute-force search whenever the cell is thinner than the
// largest cutoff along any axis, where a bin could see non-adjacent images.
//
// Each atom is searched with its own cutoff plus the skin, not with the sum of
// both atoms' cutoffs. A pair is kept when the distance is below the larger of
// the two radii, so the map is always bidirectional: (i, j, o) is present if
// and only if (j, i, -o) is. A zero-offset self pair is never stored.
//
// Offsets refer to the positions exactly as given; atoms outside the cell are
// wrapped only for the search.
package neighbor
