package models

import "time"

// Book is a catalogue entry. AverageRating and TotalReviews are derived from
// the book's reviews and are only ever written by the rating aggregator.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Description   string    `json:"description"`
	Genre         string    `json:"genre"`
	Year          int       `json:"year"`
	ImageURL      string    `json:"imageUrl"`
	OwnerID       string    `json:"addedBy"`
	AverageRating float64   `json:"averageRating"`
	TotalReviews  int       `json:"totalReviews"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BookWithOwner is a Book joined with minimal owner info.
type BookWithOwner struct {
	Book
	Owner UserSummary `json:"owner"`
}

// BookSummary is the slice of a Book shown next to a user's reviews.
type BookSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	ImageURL string `json:"imageUrl"`
}

// Aggregate is the derived rating pair stored on a Book.
type Aggregate struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

// BookInput carries the client-settable fields of a Book.
type BookInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Author      string `json:"author" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=2000"`
	Genre       string `json:"genre" validate:"required,genre"`
	Year        int    `json:"year" validate:"required,pubyear"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,http_url,max=2048"`
}

// BookPatch is a partial update. There is deliberately no way to express the
// derived rating fields here.
type BookPatch struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Description *string `json:"description,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	Year        *int    `json:"year,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// Apply returns in with every non-nil patch field written over it.
func (p BookPatch) Apply(in BookInput) BookInput {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Author != nil {
		in.Author = *p.Author
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Genre != nil {
		in.Genre = *p.Genre
	}
	if p.Year != nil {
		in.Year = *p.Year
	}
	if p.ImageURL != nil {
		in.ImageURL = *p.ImageURL
	}
	return in
}

// Input extracts the client-settable fields of b.
func (b Book) Input() BookInput {
	return BookInput{
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Genre:       b.Genre,
		Year:        b.Year,
		ImageURL:    b.ImageURL,
	}
}

// Sort keys accepted by book listings.
const (
	SortNewest = "newest"
	SortYear   = "year"
	SortRating = "rating"
	SortTitle  = "title"
)

// BookQuery filters and pages a book listing. Page is 1-based.
type BookQuery struct {
	Search   string
	Genre    string
	Sort     string
	Page     int
	PageSize int
}

// Offset is the number of rows skipped for q's page.
func (q BookQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// BookPage is one page of a book listing.
type BookPage struct {
	Items []BookWithOwner `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Pages int             `json:"pages"`
}

// PageCount is ceil(total/size).
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
