package domain

// Domain contains core models shared across fetchers, the pipeline, and storage.

// Record is a published archival resource as returned by the search service.
// Identity is the URI; Title is display text only.
type Record struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ArrangementMap is a finding-aid map from the arrangement-map service.
// Ref is the service's own identifier path; URI is the archival record URI
// resolved through the map's first child.
type ArrangementMap struct {
	Ref   string `json:"ref"`
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Record converts the resolved map into the shared Record shape used by the
// formatter.
func (m ArrangementMap) Record() Record {
	return Record{URI: m.URI, Title: m.Title}
}
