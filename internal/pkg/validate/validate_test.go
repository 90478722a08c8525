package validate

import (
	"testing"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStruct_CustomTags(t *testing.T) {
	in := domain.PostingInput{
		Title:        "Umbrella",
		Description:  "call eval( on this please",
		Place:        "<script>",
		EventTime:    time.Now(),
		ContactName:  "Bob",
		ContactPhone: "999",
	}
	err := Struct(in)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorContains(t, err, "field 'Description' failed 'nosensitive'")
	assert.ErrorContains(t, err, "field 'Place' failed 'noscript'")
	assert.ErrorContains(t, err, "field 'ContactPhone' failed 'cnphone'")
}

func TestStruct_Valid(t *testing.T) {
	in := domain.CreateUserRequest{Username: "alice", Password: "password123", Name: "Alice", Phone: "13912345678"}
	assert.NoError(t, Struct(in))
}

func TestStruct_ImageDive(t *testing.T) {
	in := domain.PostingInput{
		Title:        "Umbrella",
		Description:  "Blue umbrella left on the bus",
		Place:        "Bus 42",
		EventTime:    time.Now(),
		ContactName:  "Bob",
		ContactPhone: "13912345678",
		Images:       []string{"a", ""},
	}
	assert.ErrorIs(t, Struct(in), domain.ErrValidation)
}
