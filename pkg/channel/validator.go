// Package channel implements Bayeux channel-name validation and the
// wildcard expansion used to route published messages to wildcard
// subscribers.
//
// A channel name is a slash-separated path such as /chat/room1. Segments
// may contain letters, digits and the characters _-!~()$@. Subscriptions
// may additionally end in /* (matches one more segment) or /** (matches any
// remaining depth). Wildcards are only valid as the final segment.
package channel

import "regexp"

var (
	publishRe   = regexp.MustCompile(`^(?:/[a-zA-Z0-9\-_!~()$@]+)+/?$`)
	subscribeRe = regexp.MustCompile(`^(?:/[a-zA-Z0-9\-_!~()$@]+)+(?:/\*\*|/\*|/)?$`)
)

// ValidPublish reports whether name is a valid concrete channel to publish
// to. Wildcards are not allowed.
func ValidPublish(name string) bool {
	return publishRe.MatchString(name)
}

// ValidSubscribe reports whether name is a valid subscription target: a
// concrete channel or one ending in a terminal /* or /** wildcard.
func ValidSubscribe(name string) bool {
	return subscribeRe.MatchString(name)
}
