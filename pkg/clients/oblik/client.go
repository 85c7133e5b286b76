package oblik

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

// Client exposes the bridge operations used by the command line tool.
type Client interface {
	Status(ctx context.Context) (*models.SessionStatus, error)
	LoadAccounting(ctx context.Context, path string) (*models.FileStatus, error)
	LoadStock(ctx context.Context, path string) (*models.FileStatus, error)
	AutoLoad(ctx context.Context) (*models.SessionStatus, error)
	Search(ctx context.Context, query string) (*models.SearchResult, error)
	Confirm(ctx context.Context, text string) (*models.SearchResult, error)
	Stock(ctx context.Context, name, article string) (*models.StockLookup, error)
	Mapping(ctx context.Context) (models.ColumnMapping, error)
	SetMapping(ctx context.Context, m models.ColumnMapping) (*models.SearchResult, error)
	History(ctx context.Context) (*models.HistoryView, error)
	ClearHistory(ctx context.Context) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a bridge client for the given base URL.
func NewClient(baseURL string) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &APIClient{httpClient: restyClient}
}

// apiError mirrors the bridge error body.
type apiError struct {
	Error string `json:"error"`
}

func (c *APIClient) do(ctx context.Context, method, path string, body, result any, query map[string]string) error {
	apiErr := new(apiError)

	req := c.httpClient.R().
		SetContext(ctx).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("oblik api error: code=%d, message=%s", resp.StatusCode(), message)
	}
	return nil
}

func (c *APIClient) Status(ctx context.Context) (*models.SessionStatus, error) {
	out := new(models.SessionStatus)
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) LoadAccounting(ctx context.Context, path string) (*models.FileStatus, error) {
	out := new(models.FileStatus)
	if err := c.do(ctx, http.MethodPost, "/api/accounting/load", models.LoadRequest{Path: path}, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) LoadStock(ctx context.Context, path string) (*models.FileStatus, error) {
	out := new(models.FileStatus)
	if err := c.do(ctx, http.MethodPost, "/api/stock/load", models.LoadRequest{Path: path}, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) AutoLoad(ctx context.Context) (*models.SessionStatus, error) {
	out := new(models.SessionStatus)
	if err := c.do(ctx, http.MethodPost, "/api/autoload", nil, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	out := new(models.SearchResult)
	if err := c.do(ctx, http.MethodGet, "/api/search", nil, out, map[string]string{"q": query}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Confirm(ctx context.Context, text string) (*models.SearchResult, error) {
	out := new(models.SearchResult)
	if err := c.do(ctx, http.MethodPost, "/api/query/confirm", models.QueryRequest{Text: text}, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Stock(ctx context.Context, name, article string) (*models.StockLookup, error) {
	out := new(models.StockLookup)
	q := map[string]string{"name": name, "article": article}
	if err := c.do(ctx, http.MethodGet, "/api/stock", nil, out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Mapping(ctx context.Context) (models.ColumnMapping, error) {
	out := models.ColumnMapping{}
	if err := c.do(ctx, http.MethodGet, "/api/mapping", nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) SetMapping(ctx context.Context, m models.ColumnMapping) (*models.SearchResult, error) {
	out := new(models.SearchResult)
	if err := c.do(ctx, http.MethodPut, "/api/mapping", m, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) History(ctx context.Context) (*models.HistoryView, error) {
	out := new(models.HistoryView)
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) ClearHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/history", nil, nil, nil)
}
