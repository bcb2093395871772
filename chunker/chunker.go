// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package chunker splits extracted document text into overlapping,
// bounded-size chunks for embedding and retrieval.
package chunker

import "errors"

const (
	// DefaultChunkSize is the default chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is the default overlap between consecutive chunks.
	DefaultOverlap = 200
)

// ErrInvalidSplit indicates invalid chunking parameters.
var ErrInvalidSplit = errors.New("chunk size must be positive and exceed the overlap")

// separators lists cut points in decreasing priority: paragraph break,
// line break, sentence end, word boundary. A hard character cut is the
// last resort when none of these exists within the chunk budget.
var separators = []string{"\n\n", "\n", ". ", " "}

// Split splits text into chunks of at most chunkSize characters with the
// given overlap between consecutive chunks. It is a pure function: the
// same input always yields the same chunks.
//
// Every chunk after the first starts overlap characters before the end of
// its predecessor, so concatenating the chunks with the first overlap
// characters of each subsequent chunk removed reconstructs the input
// exactly. The final chunk may be shorter than chunkSize.
//
// Requires chunkSize > overlap >= 0. Empty input yields no chunks.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidSplit
	}
	if text == "" {
		return []string{}, nil
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		if len(runes)-start <= chunkSize {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		end := start + chunkSize
		cut := end
		// Prefer a natural boundary, but only one that keeps the next
		// chunk moving forward past the overlap region.
		for _, sep := range separators {
			if idx := lastIndexRunes(runes[start:end], sep); idx >= 0 {
				candidate := start + idx + len([]rune(sep))
				if candidate > start+overlap {
					cut = candidate
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:cut]))
		start = cut - overlap
	}

	return chunks, nil
}

// lastIndexRunes returns the index of the last occurrence of sep in window,
// or -1 if sep is not present.
func lastIndexRunes(window []rune, sep string) int {
	sepRunes := []rune(sep)
	for i := len(window) - len(sepRunes); i >= 0; i-- {
		match := true
		for j := range sepRunes {
			if window[i+j] != sepRunes[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
