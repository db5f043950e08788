package validate_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/5w1tchy/book-reviews/internal/config"
	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v2024() *validate.Validator {
	return validate.New(func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) })
}

func TestBook_SanitizesAndAccepts(t *testing.T) {
	in := models.BookInput{
		Title: "  Dune\x00  Messiah ", Author: " Frank  Herbert", Description: " d ",
		Genre: " Science Fiction ", Year: 2024, ImageURL: " https://img.example.com/d.png ",
	}
	require.NoError(t, v2024().Book(&in))
	assert.Equal(t, "Dune Messiah", in.Title)
	assert.Equal(t, "Frank Herbert", in.Author)
	assert.Equal(t, "Science Fiction", in.Genre)
	assert.Equal(t, "https://img.example.com/d.png", in.ImageURL)
}

func TestBook_FieldErrorsUseJSONNames(t *testing.T) {
	in := models.BookInput{Title: strings.Repeat("t", 201), Genre: "Cooking", Year: 2025}
	err := v2024().Book(&in)
	require.ErrorIs(t, err, models.ErrValidation)

	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	byField := map[string]string{}
	for _, f := range ve.Fields {
		byField[f.Field] = f.Code
	}
	assert.Equal(t, "max", byField["title"])
	assert.Equal(t, "required", byField["author"])
	assert.Equal(t, "required", byField["description"])
	assert.Equal(t, "genre", byField["genre"])
	assert.Equal(t, "pubyear", byField["year"])
}

func TestReview_NilImagesBecomeEmpty(t *testing.T) {
	in := models.ReviewInput{Rating: 5, ReviewText: " fine "}
	require.NoError(t, v2024().Review(&in))
	assert.Equal(t, []string{}, in.Images)
	assert.Equal(t, "fine", in.ReviewText)
}

func TestReview_ImageBounds(t *testing.T) {
	six := []string{"https://a/1", "https://a/2", "https://a/3", "https://a/4", "https://a/5", "https://a/6"}
	in := models.ReviewInput{Rating: 5, ReviewText: "x", Images: six}
	require.ErrorIs(t, v2024().Review(&in), models.ErrValidation)

	in = models.ReviewInput{Rating: 5, ReviewText: "x", Images: six[:5]}
	require.NoError(t, v2024().Review(&in))
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, limit string
		wantP       int
		wantL       int
	}{
		{"", "", 1, 5},
		{"3", "10", 3, 10},
		{"0", "0", 1, 5},
		{"-2", "abc", 1, 5},
		{"2", "1000", 2, 100},
	}
	for _, tc := range cases {
		p, l := validate.ClampPage(tc.page, tc.limit, 5, 100)
		assert.Equal(t, tc.wantP, p, "page %q", tc.page)
		assert.Equal(t, tc.wantL, l, "limit %q", tc.limit)
	}
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, models.SortTitle, validate.ParseSort(" Title "))
	assert.Equal(t, models.SortRating, validate.ParseSort("rating"))
	assert.Equal(t, models.SortNewest, validate.ParseSort("random"))
}

func goodConfig() config.Config {
	return config.Config{
		DatabaseURL: "postgres://localhost/books",
		Store:       config.StoreConfig{Driver: config.DriverPostgres},
		Auth: config.AuthConfig{
			JWTSecret: strings.Repeat("s", 32), AccessTTL: 15 * time.Minute, RefreshTTL: 720 * time.Hour,
		},
		Argon2: config.Argon2Config{Memory: 65536, Iterations: 3, Parallelism: 1},
	}
}

func TestConfig(t *testing.T) {
	require.NoError(t, validate.Config(goodConfig()))

	bad := map[string]func(*config.Config){
		"short secret":  func(c *config.Config) { c.Auth.JWTSecret = "short" },
		"no dsn":        func(c *config.Config) { c.DatabaseURL = "" },
		"driver":        func(c *config.Config) { c.Store.Driver = "sqlite" },
		"argon memory":  func(c *config.Config) { c.Argon2.Memory = 1024 },
		"half tls pair": func(c *config.Config) { c.HTTP.CertFile = "cert.pem" },
		"reconcile at":  func(c *config.Config) { c.Jobs.ReconcileAt = "3am" },
		"jobs tz":       func(c *config.Config) { c.Jobs.TimeZone = "Mars/Olympus" },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			c := goodConfig()
			mutate(&c)
			assert.Error(t, validate.Config(c))
		})
	}

	mem := goodConfig()
	mem.Store.Driver, mem.DatabaseURL = config.DriverMemory, ""
	assert.NoError(t, validate.Config(mem))
}

func TestHardeningWarnings_Production(t *testing.T) {
	c := goodConfig()
	c.AppEnv = "production"
	c.Store.Driver = config.DriverMemory
	warns := validate.HardeningWarnings(c)
	assert.NotEmpty(t, warns)
	assert.Contains(t, strings.Join(warns, "\n"), "STORE_DRIVER=memory")
}
