package azure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/workitem-gateway/internal/config"
	"github.com/spec-kit/workitem-gateway/internal/observability"
	"github.com/spec-kit/workitem-gateway/pkg/util"
)

const (
	contentTypeJSONPatch   = "application/json-patch+json"
	contentTypeJSON        = "application/json"
	contentTypeOctetStream = "application/octet-stream"

	// The comments API is still in preview on the store side.
	commentsAddVersion  = "7.0-preview.3"
	commentsListVersion = "7.1-preview.4"
)

// Client is the boundary to the external work-item tracking store. All
// persistent ticket state lives behind it.
type Client interface {
	GetWorkItem(ctx context.Context, id int, expandRelations bool) (*WorkItem, error)
	UpdateWorkItem(ctx context.Context, id int, ops []PatchOp) (*WorkItem, error)
	CreateWorkItem(ctx context.Context, typeName string, ops []PatchOp) (*WorkItem, error)
	ListComments(ctx context.Context, id int) ([]Comment, error)
	AddComment(ctx context.Context, id int, text string) (*Comment, error)
	UploadAttachment(ctx context.Context, fileName string, content io.Reader) (string, error)
	QueryWorkItemIDs(ctx context.Context, wiql string) ([]int, error)
	GetTeamMembers(ctx context.Context, teamName string) (int, []TeamMember, error)
	Ping(ctx context.Context) error
}

type httpClient struct {
	cfg     config.AzureConfig
	http    *fasthttp.Client
	auth    string
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewClient builds a store client authenticated with the configured PAT.
func NewClient(cfg config.AzureConfig, logger *zap.Logger, metrics *observability.Metrics) Client {
	return &httpClient{
		cfg:     cfg,
		http:    &fasthttp.Client{},
		auth:    BasicAuthHeader(cfg.PATToken),
		logger:  logger,
		metrics: metrics,
	}
}

// BasicAuthHeader builds the Authorization value the store expects: a Basic
// credential with an empty username and the PAT as password.
func BasicAuthHeader(token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+token))
}

func (c *httpClient) projectURL(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("api-version") == "" {
		query.Set("api-version", c.cfg.APIVersion)
	}
	return fmt.Sprintf("%s/%s/_apis/%s?%s", c.cfg.OrgURL, c.cfg.Project, path, query.Encode())
}

func (c *httpClient) orgURL(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("api-version") == "" {
		query.Set("api-version", c.cfg.APIVersion)
	}
	return fmt.Sprintf("%s/_apis/%s?%s", c.cfg.OrgURL, path, query.Encode())
}

// do performs a single request/response round trip. No retries: a failed
// remote call aborts the whole operation and is reported immediately.
func (c *httpClient) do(ctx context.Context, method, uri, contentType string, body []byte) (int, []byte, error) {
	c.metrics.RecordRemoteCall(method)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAuthorization, c.auth)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if body != nil {
		req.SetBody(body)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.Do(req, resp)
	}
	if err != nil {
		c.logger.Warn("work-item store unreachable", zap.String("uri", uri), zap.Error(err))
		return 0, nil, util.NewRemoteFailure(method+" "+uri, 0, err.Error())
	}

	status := resp.StatusCode()
	out := append([]byte(nil), resp.Body()...)
	return status, out, nil
}

func (c *httpClient) GetWorkItem(ctx context.Context, id int, expandRelations bool) (*WorkItem, error) {
	query := url.Values{}
	if expandRelations {
		query.Set("$expand", "relations")
	}
	uri := c.projectURL("wit/workitems/"+strconv.Itoa(id), query)
	status, body, err := c.do(ctx, fasthttp.MethodGet, uri, "", nil)
	if err != nil {
		return nil, err
	}
	if status == fasthttp.StatusNotFound {
		return nil, util.NewNotFound("work item", map[string]any{"id": id})
	}
	if !is2xx(status) {
		return nil, util.NewRemoteFailure("get work item", status, string(body))
	}
	var item WorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, util.NewRemoteFailure("get work item", status, "malformed response: "+err.Error())
	}
	return &item, nil
}

func (c *httpClient) UpdateWorkItem(ctx context.Context, id int, ops []PatchOp) (*WorkItem, error) {
	payload, err := json.Marshal(ops)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	uri := c.projectURL("wit/workitems/"+strconv.Itoa(id), nil)
	status, body, err := c.do(ctx, fasthttp.MethodPatch, uri, contentTypeJSONPatch, payload)
	if err != nil {
		return nil, err
	}
	if status == fasthttp.StatusNotFound {
		return nil, util.NewNotFound("work item", map[string]any{"id": id})
	}
	if !is2xx(status) {
		return nil, util.NewRemoteFailure("update work item", status, string(body))
	}
	var item WorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, util.NewRemoteFailure("update work item", status, "malformed response: "+err.Error())
	}
	return &item, nil
}

func (c *httpClient) CreateWorkItem(ctx context.Context, typeName string, ops []PatchOp) (*WorkItem, error) {
	payload, err := json.Marshal(ops)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	uri := c.projectURL("wit/workitems/$"+typeName, nil)
	status, body, err := c.do(ctx, fasthttp.MethodPost, uri, contentTypeJSONPatch, payload)
	if err != nil {
		return nil, err
	}
	if !is2xx(status) {
		return nil, util.NewRemoteFailure("create work item", status, string(body))
	}
	var item WorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, util.NewRemoteFailure("create work item", status, "malformed response: "+err.Error())
	}
	return &item, nil
}

func (c *httpClient) ListComments(ctx context.Context, id int) ([]Comment, error) {
	query := url.Values{}
	query.Set("api-version", commentsListVersion)
	uri := c.projectURL("wit/workitems/"+strconv.Itoa(id)+"/comments", query)
	status, body, err := c.do(ctx, fasthttp.MethodGet, uri, "", nil)
	if err != nil {
		return nil, err
	}
	if status == fasthttp.StatusNotFound {
		return nil, util.NewNotFound("work item", map[string]any{"id": id})
	}
	if !is2xx(status) {
		return nil, util.NewRemoteFailure("list comments", status, string(body))
	}
	var parsed struct {
		Comments []Comment `json:"comments"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, util.NewRemoteFailure("list comments", status, "malformed response: "+err.Error())
	}
	return parsed.Comments, nil
}

func (c *httpClient) AddComment(ctx context.Context, id int, text string) (*Comment, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	query := url.Values{}
	query.Set("api-version", commentsAddVersion)
	uri := c.projectURL("wit/workitems/"+strconv.Itoa(id)+"/comments", query)
	status, body, err := c.do(ctx, fasthttp.MethodPost, uri, contentTypeJSON, payload)
	if err != nil {
		return nil, err
	}
	if status == fasthttp.StatusNotFound {
		return nil, util.NewNotFound("work item", map[string]any{"id": id})
	}
	if !is2xx(status) {
		return nil, util.NewRemoteFailure("add comment", status, string(body))
	}
	var comment Comment
	if err := json.Unmarshal(body, &comment); err != nil {
		return nil, util.NewRemoteFailure("add comment", status, "malformed response: "+err.Error())
	}
	return &comment, nil
}

func (c *httpClient) UploadAttachment(ctx context.Context, fileName string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", util.NewInternalError(err)
	}
	query := url.Values{}
	query.Set("fileName", fileName)
	uri := c.projectURL("wit/attachments", query)
	status, body, err := c.do(ctx, fasthttp.MethodPost, uri, contentTypeOctetStream, data)
	if err != nil {
		return "", err
	}
	if !is2xx(status) {
		return "", util.NewRemoteFailure("upload attachment", status, string(body))
	}
	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", util.NewRemoteFailure("upload attachment", status, "malformed response: "+err.Error())
	}
	return parsed.URL, nil
}

func (c *httpClient) QueryWorkItemIDs(ctx context.Context, wiql string) ([]int, error) {
	payload, err := json.Marshal(map[string]string{"query": wiql})
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	uri := c.projectURL("wit/wiql", nil)
	status, body, err := c.do(ctx, fasthttp.MethodPost, uri, contentTypeJSON, payload)
	if err != nil {
		return nil, err
	}
	if !is2xx(status) {
		return nil, util.NewRemoteFailure("query work items", status, string(body))
	}
	var parsed struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, util.NewRemoteFailure("query work items", status, "malformed response: "+err.Error())
	}
	ids := make([]int, 0, len(parsed.WorkItems))
	for _, item := range parsed.WorkItems {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func (c *httpClient) GetTeamMembers(ctx context.Context, teamName string) (int, []TeamMember, error) {
	uri := c.orgURL("projects/"+c.cfg.Project+"/teams/"+url.PathEscape(teamName)+"/members", nil)
	status, body, err := c.do(ctx, fasthttp.MethodGet, uri, "", nil)
	if err != nil {
		return 0, nil, err
	}
	if status == fasthttp.StatusNotFound {
		return 0, nil, util.NewNotFound("team", map[string]any{"team": teamName})
	}
	if !is2xx(status) {
		return 0, nil, util.NewRemoteFailure("get team members", status, string(body))
	}
	var parsed struct {
		Count int `json:"count"`
		Value []struct {
			Identity struct {
				DisplayName string `json:"displayName"`
				UniqueName  string `json:"uniqueName"`
			} `json:"identity"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, nil, util.NewRemoteFailure("get team members", status, "malformed response: "+err.Error())
	}
	members := make([]TeamMember, 0, len(parsed.Value))
	for _, entry := range parsed.Value {
		members = append(members, TeamMember{
			DisplayName: entry.Identity.DisplayName,
			UniqueName:  entry.Identity.UniqueName,
		})
	}
	return parsed.Count, members, nil
}

// Ping checks reachability of the store for readiness probes.
func (c *httpClient) Ping(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}
	uri := c.orgURL("projects/"+c.cfg.Project, nil)
	status, body, err := c.do(ctx, fasthttp.MethodGet, uri, "", nil)
	if err != nil {
		return err
	}
	if !is2xx(status) {
		return util.NewRemoteFailure("ping", status, string(body))
	}
	return nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
