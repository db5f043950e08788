package models

import "time"

// Review limits.
const (
	MinRating       = 1
	MaxRating       = 5
	MaxReviewText   = 1000
	MaxReviewImages = 5
)

type Review struct {
	ID         string    `json:"id"`
	BookID     string    `json:"bookId"`
	UserID     string    `json:"userId"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"reviewText"`
	Images     []string  `json:"images"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ReviewWithAuthor is a Review joined with its author.
type ReviewWithAuthor struct {
	Review
	User UserSummary `json:"user"`
}

// ReviewWithBook is a Review joined with the book it is about.
type ReviewWithBook struct {
	Review
	Book BookSummary `json:"book"`
}

type ReviewInput struct {
	Rating     int      `json:"rating" validate:"min=1,max=5"`
	ReviewText string   `json:"reviewText" validate:"required,max=1000"`
	Images     []string `json:"images" validate:"max=5,dive,http_url,max=2048"`
}

type ReviewPatch struct {
	Rating     *int      `json:"rating,omitempty"`
	ReviewText *string   `json:"reviewText,omitempty"`
	Images     *[]string `json:"images,omitempty"`
}

// Apply returns in with every non-nil patch field written over it.
func (p ReviewPatch) Apply(in ReviewInput) ReviewInput {
	if p.Rating != nil {
		in.Rating = *p.Rating
	}
	if p.ReviewText != nil {
		in.ReviewText = *p.ReviewText
	}
	if p.Images != nil {
		in.Images = *p.Images
	}
	return in
}

func (r Review) Input() ReviewInput {
	return ReviewInput{Rating: r.Rating, ReviewText: r.ReviewText, Images: r.Images}
}
