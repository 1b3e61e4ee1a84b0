package lmsclient

import (
	"context"
	"net/http"
)

const (
	resourcesPath  = "/resources"
	categoriesPath = "/categories"
	activityPath   = "/activity"
)

// ListResources lists learning resources.
func (c *Client) ListResources(ctx context.Context, opts ResourceListOptions) (Page[Resource], error) {
	return list[Resource](ctx, c, resourcesPath, opts.values())
}

// SearchResources runs a full-text search. The query must not be blank.
func (c *Client) SearchResources(ctx context.Context, query string, opts ResourceListOptions) (Page[Resource], error) {
	values := opts.values()
	values.Set("q", query)
	return list[Resource](ctx, c, resourcesPath+"/search", values)
}

// GetResource fetches one resource.
func (c *Client) GetResource(ctx context.Context, id uint) (Resource, error) {
	return call[Resource](ctx, c, http.MethodGet, idPath(resourcesPath, id), nil, nil)
}

// CreateResource creates a resource.
func (c *Client) CreateResource(ctx context.Context, input ResourceInput) (Resource, error) {
	return call[Resource](ctx, c, http.MethodPost, resourcesPath, nil, input)
}

// UpdateResource applies the non-empty fields of input.
func (c *Client) UpdateResource(ctx context.Context, id uint, input ResourceInput) (Resource, error) {
	return call[Resource](ctx, c, http.MethodPut, idPath(resourcesPath, id), nil, input)
}

// DeleteResource removes a resource.
func (c *Client) DeleteResource(ctx context.Context, id uint) error {
	_, err := c.do(ctx, http.MethodDelete, idPath(resourcesPath, id), nil, nil, nil)
	return err
}

// ListCategories lists resource categories.
func (c *Client) ListCategories(ctx context.Context, opts ListOptions) (Page[Category], error) {
	return list[Category](ctx, c, categoriesPath, opts.values())
}

// GetCategory fetches one category.
func (c *Client) GetCategory(ctx context.Context, id uint) (Category, error) {
	return call[Category](ctx, c, http.MethodGet, idPath(categoriesPath, id), nil, nil)
}

// CreateCategory creates a category. The slug is derived from the name when empty.
func (c *Client) CreateCategory(ctx context.Context, input CategoryInput) (Category, error) {
	return call[Category](ctx, c, http.MethodPost, categoriesPath, nil, input)
}

// UpdateCategory renames a category.
func (c *Client) UpdateCategory(ctx context.Context, id uint, input CategoryInput) (Category, error) {
	return call[Category](ctx, c, http.MethodPut, idPath(categoriesPath, id), nil, input)
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, id uint) error {
	_, err := c.do(ctx, http.MethodDelete, idPath(categoriesPath, id), nil, nil, nil)
	return err
}

// ListActivity pages through the audit log.
func (c *Client) ListActivity(ctx context.Context, opts ActivityListOptions) (Page[Activity], error) {
	return list[Activity](ctx, c, activityPath, opts.values())
}
