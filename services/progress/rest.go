package progresssvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-lab/core/progress"
)

// RESTStore persists checkpoints through the lab's HTTP API, as the
// student identified by token.
type RESTStore struct {
	client     *rest.Client
	baseURL    string
	token      string
	activityID string
}

var _ progress.Store = (*RESTStore)(nil)

// NewRESTStore talks to the API at baseURL (e.g. "http://localhost:8000").
// httpClient may be nil.
func NewRESTStore(baseURL, token, activityID string, httpClient *http.Client) *RESTStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RESTStore{
		client:     &rest.Client{HTTPClient: httpClient},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		activityID: activityID,
	}
}

func (s *RESTStore) endpoint(parts ...string) string {
	p := "/v1/activities/" + url.PathEscape(s.activityID) + "/checkpoints"
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return s.baseURL + p
}

func (s *RESTStore) request(method rest.Method, endpoint string, body []byte) rest.Request {
	headers := map[string]string{"Accept": "application/json"}
	if s.token != "" {
		headers["Authorization"] = "Bearer " + s.token
	}
	if body != nil {
		headers["Content-Type"] = "application/json"
	}
	return rest.Request{Method: method, BaseURL: endpoint, Headers: headers, Body: body}
}

func (s *RESTStore) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	httpRes, err := s.client.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s %s", req.Method, req.BaseURL)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: res.StatusCode, Message: apiErrorMessage(res.Body)}
	}
	return res, nil
}

// Load returns the saved snapshot document.
func (s *RESTStore) Load(ctx context.Context) ([]byte, error) {
	res, err := s.send(ctx, s.request(rest.Get, s.endpoint(), nil))
	if err != nil {
		return nil, errors.Wrap(err, "loading checkpoints")
	}
	var body struct {
		Checkpoints json.RawMessage `json:"checkpoints"`
	}
	if err = json.Unmarshal([]byte(res.Body), &body); err != nil {
		return nil, errors.Wrap(err, "decoding checkpoints")
	}
	return body.Checkpoints, nil
}

func (s *RESTStore) Save(ctx context.Context, componentID string, progressPct int, completed bool, snapshot progress.CheckpointSet) error {
	body, err := json.Marshal(progress.SaveCheckpoint{
		ActivityID:  s.activityID,
		ComponentID: componentID,
		Progress:    progressPct,
		Completed:   completed,
		Snapshot:    progress.SnapshotJSON(snapshot),
	})
	if err != nil {
		return errors.Wrap(err, "encoding checkpoint")
	}
	_, err = s.send(ctx, s.request(rest.Put, s.endpoint(componentID), body))
	return errors.Wrapf(err, "saving checkpoint %q", componentID)
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

func apiErrorMessage(body string) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(body)
}
