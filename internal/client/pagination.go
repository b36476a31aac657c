package client

import (
	"net/url"
	"strconv"
)

// Pagination is the paging block of every list response.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Page is the list envelope {data, pagination}.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListOptions are the common query parameters of list endpoints.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	return v
}

// Key renders the options for use in cache keys.
func (o ListOptions) Key() string {
	return o.values().Encode()
}
