package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/go-playground/validator/v10"
)

var wsRe = regexp.MustCompile(`\s+`)

// Validator checks book and review payloads against the schema bounds.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New builds a Validator. now supplies the clock used for the "year is not in
// the future" rule; nil means time.Now.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	vv := validator.New()
	vv.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	val := &Validator{v: vv, now: now}
	_ = vv.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
		return models.IsGenre(fl.Field().String())
	})
	_ = vv.RegisterValidation("pubyear", func(fl validator.FieldLevel) bool {
		y := fl.Field().Int()
		return y >= 1000 && y <= int64(val.now().Year())
	})
	return val
}

// Book sanitizes in place and validates a BookInput.
func (v *Validator) Book(in *models.BookInput) error {
	in.Title = SanitizeString(in.Title)
	in.Author = SanitizeString(in.Author)
	in.Description = strings.TrimSpace(strings.ReplaceAll(in.Description, "\x00", ""))
	in.Genre = strings.TrimSpace(in.Genre)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	return v.Struct(in)
}

// Review sanitizes in place and validates a ReviewInput.
func (v *Validator) Review(in *models.ReviewInput) error {
	in.ReviewText = strings.TrimSpace(strings.ReplaceAll(in.ReviewText, "\x00", ""))
	if in.Images == nil {
		in.Images = []string{}
	}
	for i := range in.Images {
		in.Images[i] = strings.TrimSpace(in.Images[i])
	}
	return v.Struct(in)
}

// Struct runs the tag rules on s and converts failures to *models.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &models.ValidationError{}
	for _, e := range verrs {
		out.Fields = append(out.Fields, models.FieldError{
			Field:   e.Field(),
			Code:    e.Tag(),
			Message: v.friendlyMessage(e),
		})
	}
	return out
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", e.Param())
		}
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "url", "http_url":
		return "must be a valid http(s) URL"
	case "genre":
		return "must be one of: " + strings.Join(models.Genres, ", ")
	case "pubyear":
		return "must be between 1000 and " + strconv.Itoa(v.now().Year())
	default:
		return "is invalid"
	}
}

// SanitizeString trims, strips NUL bytes and collapses runs of whitespace.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\x00", "")
	return wsRe.ReplaceAllString(s, " ")
}

// ClampPage parses 1-based paging params. Invalid page falls back to 1,
// invalid or out-of-range limit falls back to def.
func ClampPage(pageRaw, limitRaw string, def, max int) (int, int) {
	page := 1
	if v, err := strconv.Atoi(strings.TrimSpace(pageRaw)); err == nil && v >= 1 {
		page = v
	}
	limit := def
	if v, err := strconv.Atoi(strings.TrimSpace(limitRaw)); err == nil && v >= 1 {
		limit = min(v, max)
	}
	return page, limit
}

// ParseSort maps a query value onto one of the book sort keys.
func ParseSort(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case models.SortYear:
		return models.SortYear
	case models.SortRating:
		return models.SortRating
	case models.SortTitle:
		return models.SortTitle
	default:
		return models.SortNewest
	}
}
