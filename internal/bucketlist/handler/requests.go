package handler

import (
	"strings"

	"bucketlist/internal/bucketlist/models"
	dErrors "bucketlist/pkg/domain-errors"
)

type CreateBucketlistRequest struct {
	Name string `json:"name"`
}

func (r *CreateBucketlistRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateBucketlistRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "attribute name not found")
	}
	return models.ValidateName(r.Name)
}

type UpdateBucketlistRequest struct {
	Name *string `json:"name"`
}

func (r *UpdateBucketlistRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
}

func (r *UpdateBucketlistRequest) Validate() error {
	if r.Name != nil {
		return models.ValidateName(*r.Name)
	}
	return nil
}

// CreateItemRequest leaves Done optional; an absent value means false.
type CreateItemRequest struct {
	Name string `json:"name"`
	Done *bool  `json:"done"`
}

func (r *CreateItemRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateItemRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name attribute not found!")
	}
	return models.ValidateName(r.Name)
}

type UpdateItemRequest struct {
	Name *string `json:"name"`
	Done *bool   `json:"done"`
}

func (r *UpdateItemRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
}

func (r *UpdateItemRequest) Validate() error {
	if r.Name != nil {
		return models.ValidateName(*r.Name)
	}
	return nil
}
