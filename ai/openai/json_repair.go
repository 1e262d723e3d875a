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


package openai

import "strings"

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairJSON attempts to fix common JSON formatting issues from LLM responses:
// keys missing their opening quote and trailing commas before a closing
// bracket or brace. Text inside string literals is left alone.
func repairJSON(s string) string {
	src := []rune(s)
	fixed := make([]rune, 0, len(src)+16)

	inString := false
	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inString {
			fixed = append(fixed, ch)
			if ch == '\\' && i+1 < len(src) {
				i++
				fixed = append(fixed, src[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			fixed = append(fixed, ch)

		case ',':
			// Drop a trailing comma
			j := skipSpace(src, i+1)
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
			fixed = append(fixed, ch)
			i = repairKey(src, i+1, &fixed)

		case '{':
			fixed = append(fixed, ch)
			i = repairKey(src, i+1, &fixed)

		default:
			fixed = append(fixed, ch)
		}
	}

	return string(fixed)
}

// repairKey copies whitespace starting at i and, when it finds a bare key
// followed by `":`, writes the missing opening quote. It returns the index
// of the last rune it consumed.
func repairKey(src []rune, i int, fixed *[]rune) int {
	j := skipSpace(src, i)
	*fixed = append(*fixed, src[i:j]...)
	if j >= len(src) || !isLetter(src[j]) {
		return j - 1
	}

	k := j
	for k < len(src) && (isLetter(src[k]) || src[k] == '_') {
		k++
	}
	if k+1 < len(src) && src[k] == '"' && src[k+1] == ':' {
		*fixed = append(*fixed, '"')
		*fixed = append(*fixed, src[j:k]...)
		*fixed = append(*fixed, '"')
		return k
	}
	*fixed = append(*fixed, src[j:k]...)
	return k - 1
}

func skipSpace(src []rune, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t' || src[i] == '\r') {
		i++
	}
	return i
}
