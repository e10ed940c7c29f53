package model

// Page is one scanned page of a document together with its scheduling flags
type Page struct {
	// ID uniquely identifies the page in the corpus store
	ID string `json:"id"`

	// DocumentID identifies the source document
	DocumentID string `json:"document_id,omitempty"`

	// Number is the 1-indexed page number within the document
	Number int `json:"page_number"`

	// Detections is the ordered, append-only detection list owned by the
	// upstream pipeline. A nil slice means postprocessing produced no list.
	Detections []Detection `json:"detections"`

	// Postprocessed is set by the upstream pipeline once class labels are final
	Postprocessed bool `json:"postprocessed"`

	// Merged is set by the merging engine once Objects has been committed
	Merged bool `json:"merged"`

	// Objects is the merged object list, replaced wholesale on every merge
	Objects []MergedObject `json:"merged_objects,omitempty"`

	// LoadError is set by a repository when the stored detection list
	// could not be decoded. Detections is nil in that case.
	LoadError string `json:"-"`
}

// NewPage creates an unmerged page
func NewPage(id string, number int, detections []Detection) *Page {
	return &Page{
		ID:            id,
		Number:        number,
		Detections:    detections,
		Postprocessed: true,
	}
}

// ObjectCount returns the number of merged objects on the page
func (p *Page) ObjectCount() int {
	return len(p.Objects)
}

// ObjectsOfClass returns merged objects with the given class
func (p *Page) ObjectsOfClass(c Class) []MergedObject {
	var out []MergedObject
	for _, o := range p.Objects {
		if o.Class == c {
			out = append(out, o)
		}
	}
	return out
}

// ObjectsInRegion returns merged objects whose box intersects region
func (p *Page) ObjectsInRegion(region Box) []MergedObject {
	var out []MergedObject
	for _, o := range p.Objects {
		if region.Intersects(o.Box) {
			out = append(out, o)
		}
	}
	return out
}
