// Package catalog holds the canonical column schema for each supported
// record kind. Each column name doubles as its extraction path: a dotted
// sequence of field accesses into the nested record, resolved by
// record.Resolve / record.Flatten at runtime.
//
// The catalogs are static and independent per kind. Requesting an unknown
// kind is a configuration error, fatal to the run.
package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind selects which catalog applies to a run. The input stream is
// kind-homogeneous: one kind is chosen once for the whole run.
type Kind string

const (
	KindTweets     Kind = "tweets"
	KindUsers      Kind = "users"
	KindCompliance Kind = "compliance"
	KindCounts     Kind = "counts"
	KindLists      Kind = "lists"
)

// Known returns the supported kinds in their documented order.
func Known() []Kind {
	return []Kind{KindTweets, KindUsers, KindCompliance, KindCounts, KindLists}
}

// IdentityField names the field that uniquely identifies a record of the
// given kind, or "" for identity-less kinds (aggregate counts).
func IdentityField(k Kind) string {
	if k == KindCounts {
		return ""
	}
	return "id"
}

// Columns returns a copy of the canonical ordered column list for the kind.
func Columns(k Kind) ([]string, error) {
	var src []string
	switch k {
	case KindTweets:
		src = tweetColumns
	case KindUsers:
		src = userColumns
	case KindCompliance:
		src = complianceColumns
	case KindCounts:
		src = countsColumns
	case KindLists:
		src = listsColumns
	default:
		return nil, fmt.Errorf("catalog: unknown record kind %q (known: %v)", k, Known())
	}
	out := make([]string, len(src))
	copy(out, src)
	return out, nil
}

// BuildColumns returns the run's input column schema: the kind's canonical
// columns followed by the user-declared extras (normalized, duplicates
// skipped, order preserved).
func BuildColumns(k Kind, extras []string) ([]string, error) {
	cols, err := Columns(k)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(cols)+len(extras))
	for _, c := range cols {
		seen[c] = struct{}{}
	}
	for _, e := range extras {
		c := NormalizeColumnName(e)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}
	return cols, nil
}

// NormalizeColumnName canonicalizes a user-supplied column name: trims
// whitespace, folds diacritics to ASCII, and replaces inner whitespace with
// underscores. Dots are preserved since they are path separators.
func NormalizeColumnName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), "_")
}

// tweetColumns is the canonical tweet projection. Columns map 1:1 onto the
// flattened record paths; the referenced_tweets.* and *_user_id/_username
// columns are filled in by the reference-expansion stage before flattening.
var tweetColumns = []string{
	"id",
	"conversation_id",
	"referenced_tweets.replied_to.id",
	"referenced_tweets.retweeted.id",
	"referenced_tweets.quoted.id",
	"author_id",
	"in_reply_to_user_id",
	"in_reply_to_username",
	"retweeted_user_id",
	"retweeted_username",
	"quoted_user_id",
	"quoted_username",
	"created_at",
	"text",
	"lang",
	"source",
	"public_metrics.impression_count",
	"public_metrics.reply_count",
	"public_metrics.retweet_count",
	"public_metrics.quote_count",
	"public_metrics.like_count",
	"public_metrics.bookmark_count",
	"reply_settings",
	"edit_history_tweet_ids",
	"edit_controls.edits_remaining",
	"edit_controls.editable_until",
	"edit_controls.is_edit_eligible",
	"possibly_sensitive",
	"withheld.scope",
	"withheld.copyright",
	"withheld.country_codes",
	"entities.annotations",
	"entities.cashtags",
	"entities.hashtags",
	"entities.mentions",
	"entities.urls",
	"context_annotations",
	"attachments.media",
	"attachments.media_keys",
	"attachments.poll.duration_minutes",
	"attachments.poll.end_datetime",
	"attachments.poll.id",
	"attachments.poll.options",
	"attachments.poll.voting_status",
	"attachments.poll_ids",
	"author.id",
	"author.created_at",
	"author.username",
	"author.name",
	"author.description",
	"author.entities.description.cashtags",
	"author.entities.description.hashtags",
	"author.entities.description.mentions",
	"author.entities.description.urls",
	"author.entities.url.urls",
	"author.url",
	"author.location",
	"author.pinned_tweet_id",
	"author.profile_image_url",
	"author.protected",
	"author.public_metrics.followers_count",
	"author.public_metrics.following_count",
	"author.public_metrics.listed_count",
	"author.public_metrics.tweet_count",
	"author.verified",
	"author.verified_type",
	"author.withheld.scope",
	"author.withheld.copyright",
	"author.withheld.country_codes",
	"geo.coordinates.coordinates",
	"geo.coordinates.type",
	"geo.country",
	"geo.country_code",
	"geo.full_name",
	"geo.geo.bbox",
	"geo.geo.type",
	"geo.id",
	"geo.name",
	"geo.place_id",
	"geo.place_type",
	"matching_rules",
	"__twarc.retrieved_at",
	"__twarc.url",
	"__twarc.version",
}

var userColumns = []string{
	"id",
	"created_at",
	"username",
	"name",
	"description",
	"entities.description.cashtags",
	"entities.description.hashtags",
	"entities.description.mentions",
	"entities.description.urls",
	"entities.url.urls",
	"location",
	"pinned_tweet_id",
	"profile_image_url",
	"protected",
	"public_metrics.followers_count",
	"public_metrics.following_count",
	"public_metrics.listed_count",
	"public_metrics.tweet_count",
	"url",
	"verified",
	"verified_type",
	"withheld.scope",
	"withheld.copyright",
	"withheld.country_codes",
	"__twarc.retrieved_at",
	"__twarc.url",
	"__twarc.version",
}

var complianceColumns = []string{
	"id",
	"action",
	"created_at",
	"redacted_at",
	"reason",
}

var countsColumns = []string{
	"start",
	"end",
	"tweet_count",
	"__twarc.retrieved_at",
	"__twarc.url",
	"__twarc.version",
}

var listsColumns = []string{
	"id",
	"owner_id",
	"created_at",
	"name",
	"description",
	"member_count",
	"follower_count",
	"private",
	"__twarc.retrieved_at",
	"__twarc.url",
	"__twarc.version",
}
