// Package topics implements MQTT topic-filter matching: splitting a topic on
// "/" and testing a concrete topic against a filter containing the "+"
// (single-level) and "#" (multi-level) wildcards.
//
// The broker's subscription index (internal/broker) is a flat scanned
// sequence rather than a filter trie, so this package supplies only the
// pairwise match predicate that index scans with.
package topics

import "strings"

// Split breaks a topic or filter into its "/"-delimited segments.
func Split(topic string) []string {
	return strings.Split(topic, "/")
}

// Matches reports whether the concrete topic matches filter, honouring the
// "+" and "#" wildcards. $SYS-style reserved prefixes are not special-cased.
func Matches(topic, filter string) bool {
	if filter == "#" {
		return true
	}

	topicParts := Split(topic)
	filterParts := Split(filter)

	if filterParts[len(filterParts)-1] == "#" {
		prefix := filterParts[:len(filterParts)-1]
		if len(topicParts) < len(prefix) {
			return false
		}
		for i, p := range prefix {
			if p != "+" && p != topicParts[i] {
				return false
			}
		}
		return true
	}

	if len(topicParts) != len(filterParts) {
		return false
	}

	for i, p := range filterParts {
		if p != "+" && p != topicParts[i] {
			return false
		}
	}
	return true
}
