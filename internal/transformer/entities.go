package transformer

import "tweetcsv/internal/record"

// processEntities rewrites the entity lists of a tweet or user description
// into their display forms: hashtags become "#tag", cashtags "$tag",
// mentions "@username", and url objects collapse to the most readable url
// available. The map is mutated in place; it is always a private clone by
// the time it gets here.
func processEntities(entities map[string]any) {
	if tags, ok := entities["cashtags"].([]any); ok {
		entities["cashtags"] = tagList(tags, "$", "tag")
	}
	if tags, ok := entities["hashtags"].([]any); ok {
		entities["hashtags"] = tagList(tags, "#", "tag")
	}
	if mentions, ok := entities["mentions"].([]any); ok {
		entities["mentions"] = tagList(mentions, "@", "username")
	}
	if urls, ok := entities["urls"].([]any); ok {
		out := make([]any, 0, len(urls))
		for _, uv := range urls {
			u, ok := record.FromAny(uv)
			if !ok {
				continue
			}
			out = append(out, displayURL(u))
		}
		entities["urls"] = out
	}
}

// tagList projects a list of entity objects onto prefixed display strings,
// e.g. {"tag": "golang"} -> "#golang".
func tagList(items []any, prefix, field string) []any {
	out := make([]any, 0, len(items))
	for _, iv := range items {
		item, ok := record.FromAny(iv)
		if !ok {
			continue
		}
		if s, ok := item[field].(string); ok {
			out = append(out, prefix+s)
		}
	}
	return out
}

// displayURL picks the most readable form of a url entity: the display url
// for media attachments, otherwise the expanded url, otherwise the t.co
// shortlink itself.
func displayURL(u record.Record) any {
	if _, isMedia := u["media_key"]; isMedia {
		if s, ok := u["display_url"]; ok {
			return s
		}
	}
	if s, ok := u["expanded_url"]; ok {
		return s
	}
	return u["url"]
}

// formatAuthorEntities rewrites the author's profile url entities (tweet
// kind: the author object embedded in a tweet). The profile has a single
// url; the last expanded url wins and is promoted to author.url.
func formatAuthorEntities(t record.Record) {
	author, ok := t["author"].(map[string]any)
	if !ok {
		return
	}
	ents, ok := author["entities"].(map[string]any)
	if !ok || len(ents) == 0 {
		return
	}
	if urlEnt, ok := ents["url"].(map[string]any); ok {
		urls := expandedURLs(urlEnt["urls"])
		urlEnt["urls"] = urls
		if len(urls) > 0 {
			author["url"] = urls[len(urls)-1]
		}
	}
	if desc, ok := ents["description"].(map[string]any); ok {
		processEntities(desc)
	}
}

// formatUserURL rewrites entity lists of a standalone user record and
// promotes the profile url (user kind).
func formatUserURL(t record.Record) {
	ents, ok := t["entities"].(map[string]any)
	if !ok || len(ents) == 0 {
		return
	}
	if desc, ok := ents["description"].(map[string]any); ok {
		processEntities(desc)
	}
	if urlEnt, ok := ents["url"].(map[string]any); ok {
		urls := expandedURLs(urlEnt["urls"])
		urlEnt["urls"] = urls
		if len(urls) > 0 {
			t["url"] = urls[len(urls)-1]
		}
	}
}

// expandedURLs maps profile url entities onto expanded urls (falling back
// to the raw url).
func expandedURLs(v any) []any {
	urls, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(urls))
	for _, uv := range urls {
		u, ok := record.FromAny(uv)
		if !ok {
			continue
		}
		if s, ok := u["expanded_url"]; ok {
			out = append(out, s)
			continue
		}
		out = append(out, u["url"])
	}
	return out
}
