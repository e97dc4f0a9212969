package openlibrary

import "strings"

// NormalizeWorkID reduces an Open Library work identifier to its bare
// form ("OL45883W"). The catalog returns keys like "/works/OL45883W"
// while clients send either shape; every boundary that stores or
// compares an id goes through here. Idempotent.
func NormalizeWorkID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "/works/")
	id = strings.TrimPrefix(id, "/")
	return id
}
