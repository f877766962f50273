// Package spacing decides whether the space a word-pair corpus implies
// between two words is really there in running text.
package spacing

import "strings"

// closingPunct attach to the preceding word with no space.
const closingPunct = ".,:;?!"

// DeleteSpaceBefore reports whether word attaches to the word before it:
// single closing punctuation, or anything starting with an apostrophe
// (contractions such as "'s" or "'ll").
func DeleteSpaceBefore(word string) bool {
	if word == "" {
		return false
	}
	if len(word) == 1 && strings.Contains(closingPunct, word) {
		return true
	}
	return word[0] == '\''
}

// DeleteSpaceBetween reports whether word is a lone double quote, which
// attaches to one of its neighbours but not both.
func DeleteSpaceBetween(word string) bool {
	return word == `"`
}
