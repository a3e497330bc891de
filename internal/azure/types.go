package azure

import "strconv"

// PatchOp is a single JSON Patch operation against a work item. The store
// uses the same op list for field updates, assignment and relation changes.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// AddField builds an op that sets a field on a work item.
func AddField(name string, value any) PatchOp {
	return PatchOp{Op: "add", Path: "/fields/" + name, Value: value}
}

// AddRelation builds an op that appends a file relation to a work item.
func AddRelation(url, comment string) PatchOp {
	return PatchOp{
		Op:   "add",
		Path: "/relations/-",
		Value: map[string]any{
			"rel": "AttachedFile",
			"url": url,
			"attributes": map[string]any{
				"comment": comment,
			},
		},
	}
}

// RemoveRelation builds an op that removes the relation at the given index.
func RemoveRelation(index int) PatchOp {
	return PatchOp{Op: "remove", Path: "/relations/" + strconv.Itoa(index)}
}

// RelationAttributes carries the metadata stored on a file relation.
type RelationAttributes struct {
	Comment string `json:"comment"`
	Name    string `json:"name"`
}

// Relation is an attachment or link entry on a work item.
type Relation struct {
	Rel        string             `json:"rel"`
	URL        string             `json:"url"`
	Attributes RelationAttributes `json:"attributes"`
}

// WorkItem is the raw record returned by the store. Fields is a loosely
// typed dictionary; normalization into domain types happens in the gateway
// layer, nowhere else.
type WorkItem struct {
	ID        int            `json:"id"`
	Fields    map[string]any `json:"fields"`
	Relations []Relation     `json:"relations"`
}

// Comment is a work-item comment as returned by the comments API.
type Comment struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// TeamMember is a member entry from the core teams API.
type TeamMember struct {
	DisplayName string
	UniqueName  string
}
