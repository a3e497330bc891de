// Package azuretest provides an in-memory work-item store for tests.
package azuretest

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/spec-kit/workitem-gateway/internal/azure"
	"github.com/spec-kit/workitem-gateway/pkg/util"
)

// UpdateCall records one UpdateWorkItem invocation.
type UpdateCall struct {
	ID  int
	Ops []azure.PatchOp
}

// FakeClient implements azure.Client against in-memory state. Patch ops are
// applied the way the real store applies them, so normalization code sees
// realistic records.
type FakeClient struct {
	mu sync.Mutex

	nextID        int
	nextCommentID int

	Items    map[int]*azure.WorkItem
	Comments map[int][]azure.Comment
	Members  map[string][]azure.TeamMember
	QueryIDs []int

	UpdateCalls []UpdateCall
	Uploads     []string
	Queries     []string

	GetErr    error
	UpdateErr error
	UploadErr error
}

// NewFakeClient returns an empty fake store.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		nextID:   100,
		Items:    make(map[int]*azure.WorkItem),
		Comments: make(map[int][]azure.Comment),
		Members:  make(map[string][]azure.TeamMember),
	}
}

// Seed inserts a work item with the given id and fields.
func (f *FakeClient) Seed(id int, fields map[string]any) *azure.WorkItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := &azure.WorkItem{ID: id, Fields: fields}
	if item.Fields == nil {
		item.Fields = make(map[string]any)
	}
	f.Items[id] = item
	return item
}

func (f *FakeClient) GetWorkItem(ctx context.Context, id int, expandRelations bool) (*azure.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	item, ok := f.Items[id]
	if !ok {
		return nil, util.NewNotFound("work item", map[string]any{"id": id})
	}
	return copyItem(item), nil
}

func (f *FakeClient) UpdateWorkItem(ctx context.Context, id int, ops []azure.PatchOp) (*azure.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls = append(f.UpdateCalls, UpdateCall{ID: id, Ops: ops})
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	item, ok := f.Items[id]
	if !ok {
		return nil, util.NewNotFound("work item", map[string]any{"id": id})
	}
	if err := applyOps(item, ops); err != nil {
		return nil, err
	}
	return copyItem(item), nil
}

func (f *FakeClient) CreateWorkItem(ctx context.Context, typeName string, ops []azure.PatchOp) (*azure.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := &azure.WorkItem{ID: f.nextID, Fields: make(map[string]any)}
	if err := applyOps(item, ops); err != nil {
		return nil, err
	}
	f.Items[item.ID] = item
	return copyItem(item), nil
}

func (f *FakeClient) ListComments(ctx context.Context, id int) ([]azure.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]azure.Comment(nil), f.Comments[id]...), nil
}

func (f *FakeClient) AddComment(ctx context.Context, id int, text string) (*azure.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Items[id]; !ok {
		return nil, util.NewNotFound("work item", map[string]any{"id": id})
	}
	f.nextCommentID++
	comment := azure.Comment{ID: f.nextCommentID, Text: text}
	f.Comments[id] = append(f.Comments[id], comment)
	return &comment, nil
}

func (f *FakeClient) UploadAttachment(ctx context.Context, fileName string, content io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UploadErr != nil {
		return "", f.UploadErr
	}
	f.Uploads = append(f.Uploads, fileName)
	return fmt.Sprintf("https://store.example/attachments/%d/%s", len(f.Uploads), fileName), nil
}

func (f *FakeClient) QueryWorkItemIDs(ctx context.Context, wiql string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, wiql)
	return append([]int(nil), f.QueryIDs...), nil
}

func (f *FakeClient) GetTeamMembers(ctx context.Context, teamName string) (int, []azure.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.Members[teamName]
	if !ok {
		return 0, nil, util.NewNotFound("team", map[string]any{"team": teamName})
	}
	return len(members), append([]azure.TeamMember(nil), members...), nil
}

func (f *FakeClient) Ping(ctx context.Context) error {
	return nil
}

func applyOps(item *azure.WorkItem, ops []azure.PatchOp) error {
	for _, op := range ops {
		switch {
		case op.Op == "add" && strings.HasPrefix(op.Path, "/fields/"):
			item.Fields[strings.TrimPrefix(op.Path, "/fields/")] = op.Value
		case op.Op == "add" && op.Path == "/relations/-":
			value, ok := op.Value.(map[string]any)
			if !ok {
				return fmt.Errorf("relation value must be an object")
			}
			rel := azure.Relation{}
			rel.Rel, _ = value["rel"].(string)
			rel.URL, _ = value["url"].(string)
			if attrs, ok := value["attributes"].(map[string]any); ok {
				rel.Attributes.Comment, _ = attrs["comment"].(string)
			}
			rel.Attributes.Name = path.Base(rel.URL)
			item.Relations = append(item.Relations, rel)
		case op.Op == "remove" && strings.HasPrefix(op.Path, "/relations/"):
			index, err := strconv.Atoi(strings.TrimPrefix(op.Path, "/relations/"))
			if err != nil || index < 0 || index >= len(item.Relations) {
				return fmt.Errorf("relation index %q out of range", op.Path)
			}
			item.Relations = append(item.Relations[:index], item.Relations[index+1:]...)
		default:
			return fmt.Errorf("unsupported op %s %s", op.Op, op.Path)
		}
	}
	return nil
}

func copyItem(item *azure.WorkItem) *azure.WorkItem {
	clone := &azure.WorkItem{ID: item.ID, Fields: make(map[string]any, len(item.Fields))}
	for key, value := range item.Fields {
		clone.Fields[key] = value
	}
	clone.Relations = append([]azure.Relation(nil), item.Relations...)
	return clone
}
