package product

import (
	"errors"
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "Accepted"
	StatusRejected Status = "Rejected"
)

// public browse sort modes for GET /products?category=
const (
	CategoryFeatured = "Featured"
	CategoryTrending = "Trending"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 100
)

var (
	ErrNotFound  = errors.New("product not found")
	ErrInvalidID = errors.New("invalid product id")
)

type Product struct {
	ID           string    `json:"_id"`
	Name         string    `json:"productName"`
	Image        string    `json:"productImage,omitempty"`
	Description  string    `json:"description,omitempty"`
	Tags         []string  `json:"tags"`
	ExternalLink string    `json:"externalLink,omitempty"`
	OwnerName    string    `json:"ownerName,omitempty"`
	OwnerImage   string    `json:"ownerImage,omitempty"`
	OwnerEmail   string    `json:"ownerEmail"`
	Category     string    `json:"category,omitempty"`
	Status       Status    `json:"status"`
	Upvotes      int       `json:"upvote"`
	Timestamp    time.Time `json:"timestamp"`
}

type CreateProductRequest struct {
	Name         string   `json:"productName" binding:"required,min=1,max=200"`
	Image        string   `json:"productImage" binding:"omitempty,max=2048"`
	Description  string   `json:"description" binding:"omitempty,max=5000"`
	Tags         []string `json:"tags" binding:"omitempty,max=20,dive,max=40"`
	ExternalLink string   `json:"externalLink" binding:"omitempty,max=2048"`
	OwnerName    string   `json:"ownerName" binding:"omitempty,max=120"`
	OwnerImage   string   `json:"ownerImage" binding:"omitempty,max=2048"`
	OwnerEmail   string   `json:"ownerEmail" binding:"omitempty,email"`
	Category     string   `json:"category" binding:"omitempty,max=60"`
}

// Patch carries the mutable product fields. Nil means "leave as is".
type Patch struct {
	Name         *string   `json:"productName" binding:"omitempty,min=1,max=200"`
	Image        *string   `json:"productImage" binding:"omitempty,max=2048"`
	Description  *string   `json:"description" binding:"omitempty,max=5000"`
	Tags         *[]string `json:"tags" binding:"omitempty,max=20"`
	ExternalLink *string   `json:"externalLink" binding:"omitempty,max=2048"`
	OwnerName    *string   `json:"ownerName" binding:"omitempty,max=120"`
	OwnerImage   *string   `json:"ownerImage" binding:"omitempty,max=2048"`
	Category     *string   `json:"category" binding:"omitempty,max=60"`
	Status       *Status   `json:"status" binding:"omitempty,oneof=pending Accepted Rejected"`
	Upvotes      *int      `json:"upvote" binding:"omitempty,min=0"`
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Image == nil && p.Description == nil && p.Tags == nil &&
		p.ExternalLink == nil && p.OwnerName == nil && p.OwnerImage == nil &&
		p.Category == nil && p.Status == nil && p.Upvotes == nil
}

// TouchesStatus reports whether the patch moderates the product.
func (p Patch) TouchesStatus() bool {
	return p.Status != nil
}

// OnlyUpvotes reports whether the patch changes nothing but the vote counter.
func (p Patch) OnlyUpvotes() bool {
	return p.Upvotes != nil && p.Name == nil && p.Image == nil && p.Description == nil &&
		p.Tags == nil && p.ExternalLink == nil && p.OwnerName == nil && p.OwnerImage == nil &&
		p.Category == nil && p.Status == nil
}

// Apply merges the patch into p.
func (p Patch) Apply(into *Product) {
	if p.Name != nil {
		into.Name = *p.Name
	}
	if p.Image != nil {
		into.Image = *p.Image
	}
	if p.Description != nil {
		into.Description = *p.Description
	}
	if p.Tags != nil {
		into.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.ExternalLink != nil {
		into.ExternalLink = *p.ExternalLink
	}
	if p.OwnerName != nil {
		into.OwnerName = *p.OwnerName
	}
	if p.OwnerImage != nil {
		into.OwnerImage = *p.OwnerImage
	}
	if p.Category != nil {
		into.Category = *p.Category
	}
	if p.Status != nil {
		into.Status = *p.Status
	}
	if p.Upvotes != nil {
		into.Upvotes = *p.Upvotes
	}
}

// SameContent reports whether a and b carry the same field values, ignoring the id.
func SameContent(a, b Product) bool {
	return a.Name == b.Name && a.Image == b.Image && a.Description == b.Description &&
		slices.Equal(a.Tags, b.Tags) && a.ExternalLink == b.ExternalLink &&
		a.OwnerName == b.OwnerName && a.OwnerImage == b.OwnerImage && a.OwnerEmail == b.OwnerEmail &&
		a.Category == b.Category && a.Status == b.Status && a.Upvotes == b.Upvotes &&
		a.Timestamp.Equal(b.Timestamp)
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Category *string
}

type Sort int

const (
	SortRecent Sort = iota
	SortUpvotes
)

// SortForCategory maps the public browse category onto a sort order.
func SortForCategory(category string) (Sort, bool) {
	switch strings.TrimSpace(category) {
	case CategoryFeatured:
		return SortRecent, true
	case CategoryTrending:
		return SortUpvotes, true
	default:
		return 0, false
	}
}

func NewFromCreateRequest(req CreateProductRequest) Product {
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	return Product{
		Name:         strings.TrimSpace(req.Name),
		Image:        req.Image,
		Description:  req.Description,
		Tags:         tags,
		ExternalLink: req.ExternalLink,
		OwnerName:    req.OwnerName,
		OwnerImage:   req.OwnerImage,
		OwnerEmail:   strings.TrimSpace(req.OwnerEmail),
		Category:     req.Category,
		Status:       StatusPending,
		Upvotes:      0,
		Timestamp:    time.Now().UTC(),
	}
}

// PendingFirst is the ordering used by the owner dashboard listing: pending products
// before everything else, newest first within a group.
func PendingFirst(a, b Product) int {
	ap, bp := a.Status == StatusPending, b.Status == StatusPending
	switch {
	case ap && !bp:
		return -1
	case !ap && bp:
		return 1
	}
	return Recent(a, b)
}

// Recent orders newest first, ties broken by id.
func Recent(a, b Product) int {
	switch {
	case a.Timestamp.After(b.Timestamp):
		return -1
	case a.Timestamp.Before(b.Timestamp):
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// MostUpvoted orders by upvotes descending, then recency.
func MostUpvoted(a, b Product) int {
	switch {
	case a.Upvotes > b.Upvotes:
		return -1
	case a.Upvotes < b.Upvotes:
		return 1
	}
	return Recent(a, b)
}
