package handler

import (
	"time"

	"bucketlist/internal/bucketlist/models"
)

type itemResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Done         bool      `json:"done"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
}

type bucketlistResponse struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Items        []itemResponse `json:"items"`
	CreatedBy    int64          `json:"created_by"`
	DateCreated  time.Time      `json:"date_created"`
	DateModified time.Time      `json:"date_modified"`
}

type pageResponse struct {
	Bucketlists  []bucketlistResponse `json:"bucketlists"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
	Total        int                  `json:"total"`
	Pages        int                  `json:"pages"`
	HasNext      bool                 `json:"has_next"`
	HasPrevious  bool                 `json:"has_previous"`
	NextPage     *string              `json:"next_page"`
	PreviousPage *string              `json:"previous_page"`
	Message      string               `json:"message,omitempty"`
}

type itemsResponse struct {
	Items   []itemResponse `json:"items"`
	Message string         `json:"message,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toItemResponse(it models.Item) itemResponse {
	return itemResponse{
		ID:           int64(it.ID),
		Name:         it.Name,
		Done:         it.Done,
		DateCreated:  it.DateCreated,
		DateModified: it.DateModified,
	}
}

func toItemResponses(items []models.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = toItemResponse(it)
	}
	return out
}

func toBucketlistResponse(b *models.Bucketlist) bucketlistResponse {
	return bucketlistResponse{
		ID:           int64(b.ID),
		Name:         b.Name,
		Items:        toItemResponses(b.Items),
		CreatedBy:    int64(b.CreatedBy),
		DateCreated:  b.DateCreated,
		DateModified: b.DateModified,
	}
}

func toPageResponse(p *models.Page) pageResponse {
	lists := make([]bucketlistResponse, len(p.Bucketlists))
	for i := range p.Bucketlists {
		lists[i] = toBucketlistResponse(&p.Bucketlists[i])
	}
	return pageResponse{
		Bucketlists:  lists,
		Page:         p.Page,
		Limit:        p.Limit,
		Total:        p.Total,
		Pages:        p.Pages,
		HasNext:      p.HasNext,
		HasPrevious:  p.HasPrevious,
		NextPage:     p.NextPage,
		PreviousPage: p.PreviousPage,
		Message:      p.Message,
	}
}
