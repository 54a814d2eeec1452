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

package search

import (
	"strings"
	"unicode"
)

// fillerWords are dropped from queries and transcripts before keyword matching.
var fillerWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "do": {}, "for": {}, "from": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "of": {}, "on": {}, "so": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "uh": {}, "um": {}, "was": {}, "with": {}, "you": {},
}

// terms returns the distinct lowercased words of text, without punctuation or filler words.
func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(text, isSeparator) {
		word = strings.ToLower(word)
		if _, skip := fillerWords[word]; skip {
			continue
		}
		out[word] = struct{}{}
	}
	return out
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '_'
}

// containsAllTerms reports whether every query term appears in content.
// A query made only of filler words never matches.
func containsAllTerms(content, query string) bool {
	want := terms(query)
	if len(want) == 0 {
		return false
	}
	have := terms(content)
	for term := range want {
		if _, ok := have[term]; !ok {
			return false
		}
	}
	return true
}
