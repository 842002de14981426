/* Copyright 2025 GymFlow Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package plandiff

import (
	"sort"
)

// markerMaxLen is the maximum number of marker characters that contribute
// to the numeric value. Markers are 1 to 8 characters of [a-z0-9].
const markerMaxLen = 8

// markerBase is the positional base of the numeric encoding. It is one
// larger than the 36-character alphabet so that an absent position (a
// shorter marker) sorts strictly before any present character.
const markerBase = 37

// markerDigit maps a marker character to its 1-based digit value,
// preserving byte order: digits sort before letters, as in a plain string
// comparison. Characters outside the alphabet are clamped to the nearest
// valid digit so the function stays total.
func markerDigit(c byte) int64 {
	switch {
	case c < '0':
		return 1
	case c <= '9':
		return int64(c-'0') + 1
	case c < 'a':
		return 10
	case c <= 'z':
		return int64(c-'a') + 11
	default:
		return 36
	}
}

// OrderToNumber derives a numeric sort order from an order-marker string.
// The mapping is total and monotonic: for any two valid markers a < b in
// lexicographic order, OrderToNumber(a) < OrderToNumber(b), and distinct
// valid markers never map to the same number. Markers longer than eight
// characters are truncated, so ranking always tie-breaks on uuid.
func OrderToNumber(marker string) int64 {
	var n int64
	for i := 0; i < markerMaxLen; i++ {
		var d int64
		if i < len(marker) {
			d = markerDigit(marker[i])
		}
		n = n*markerBase + d
	}

	return n
}

// RankByMarker returns the zero-based rank of each exercise within its
// input slice, ordered by set-order marker with uuid as the tie-break. The
// result is keyed by exercise uuid.
func RankByMarker(exercises []ExerciseNode) map[string]int {
	sorted := make([]ExerciseNode, len(exercises))
	copy(sorted, exercises)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := OrderToNumber(sorted[i].SetOrderMarker), OrderToNumber(sorted[j].SetOrderMarker)
		if a != b {
			return a < b
		}
		return sorted[i].UUID < sorted[j].UUID
	})

	ranks := make(map[string]int, len(sorted))
	for i, e := range sorted {
		ranks[e.UUID] = i
	}

	return ranks
}
