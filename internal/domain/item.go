package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ItemType selects which posting collection an id belongs to.
type ItemType int

const (
	ItemTypeFound ItemType = 0
	ItemTypeLost  ItemType = 1
)

var ItemTypes = []ItemType{ItemTypeLost, ItemTypeFound}

func ParseItemType(code int) (ItemType, error) {
	switch ItemType(code) {
	case ItemTypeFound, ItemTypeLost:
		return ItemType(code), nil
	}
	return 0, fmt.Errorf("unknown item type %d: %w", code, ErrValidation)
}

// ParseItemTypeSlug accepts the path form used by the HTTP API ("lost" / "found").
func ParseItemTypeSlug(slug string) (ItemType, error) {
	switch strings.ToLower(slug) {
	case "lost":
		return ItemTypeLost, nil
	case "found":
		return ItemTypeFound, nil
	}
	return 0, fmt.Errorf("unknown item type %q: %w", slug, ErrValidation)
}

func (t ItemType) Slug() string {
	if t == ItemTypeLost {
		return "lost"
	}
	return "found"
}

func (t ItemType) String() string { return t.Slug() }

// Posting is a lost-item or found-item listing.
type Posting struct {
	ItemID          string     `json:"id" dynamodbav:"item_id"`
	ItemType        ItemType   `json:"item_type" dynamodbav:"item_type"`
	Title           string     `json:"title" dynamodbav:"title"`
	Description     string     `json:"description" dynamodbav:"description"`
	CategoryID      string     `json:"category_id,omitempty" dynamodbav:"category_id,omitempty"`
	Place           string     `json:"place" dynamodbav:"place"`
	EventTime       time.Time  `json:"event_time" dynamodbav:"event_time"`
	ContactName     string     `json:"contact_name" dynamodbav:"contact_name"`
	ContactPhone    string     `json:"contact_phone" dynamodbav:"contact_phone"`
	Images          []string   `json:"images" dynamodbav:"images"`
	PublisherUserID string     `json:"publisher_user_id" dynamodbav:"publisher_user_id"`
	Status          ItemStatus `json:"status" dynamodbav:"status"`
	CreatedAt       time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time  `json:"updated" dynamodbav:"updated_at"`
	// OpenClaims counts claims still pending review. Claim writes keep it in
	// step with the claims table inside the same transaction.
	OpenClaims      int        `json:"-" dynamodbav:"open_claims"`
}

// PostingInput carries the user-editable content of a posting.
type PostingInput struct {
	Title        string    `json:"title" validate:"required,min=2,max=100"`
	Description  string    `json:"description" validate:"required,min=10,max=1000,nosensitive"`
	CategoryID   string    `json:"category_id"`
	Place        string    `json:"place" validate:"required,min=2,max=255,noscript"`
	EventTime    time.Time `json:"event_time" validate:"required"`
	ContactName  string    `json:"contact_name" validate:"required,min=2,max=50"`
	ContactPhone string    `json:"contact_phone" validate:"required,cnphone"`
	Images       []string  `json:"images" validate:"max=5,dive,required"`
}

const (
	MaxImages   = 5
	MaxEventAge = 365 * 24 * time.Hour
)

const (
	titleMin, titleMax = 2, 100
	descMin, descMax   = 10, 1000
	placeMin, placeMax = 2, 255
	nameMin, nameMax   = 2, 50
)

var (
	PhonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

	SensitiveFragments = []string{"<script>", "javascript:", "eval(", "alert(", "document.cookie"}
	ScriptFragments    = []string{"<script>", "javascript:"}
)

// ContainsAny reports whether s contains any of the fragments, ignoring case.
func ContainsAny(s string, fragments []string) bool {
	lower := strings.ToLower(s)
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// Validate checks the posting content rules, including the event time window
// that tag validation cannot express.
func (in PostingInput) Validate(now time.Time) error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	check(between(in.Title, titleMin, titleMax), "title must be 2-100 characters")
	check(between(in.Description, descMin, descMax), "description must be 10-1000 characters")
	check(!ContainsAny(in.Description, SensitiveFragments), "description contains forbidden content")
	check(between(in.Place, placeMin, placeMax), "place must be 2-255 characters")
	check(!ContainsAny(in.Place, ScriptFragments), "place contains forbidden content")
	check(between(in.ContactName, nameMin, nameMax), "contact name must be 2-50 characters")
	check(PhonePattern.MatchString(in.ContactPhone), "contact phone format is invalid")
	check(!in.EventTime.IsZero(), "event time is required")
	if !in.EventTime.IsZero() {
		check(!in.EventTime.After(now), "event time cannot be in the future")
		check(!in.EventTime.Before(now.Add(-MaxEventAge)), "event time cannot be more than a year ago")
	}
	check(len(in.Images) <= MaxImages, "at most 5 images are allowed")
	for _, img := range in.Images {
		if strings.TrimSpace(img) == "" {
			problems = append(problems, "image path cannot be empty")
			break
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(problems, "; "), ErrValidation)
	}
	return nil
}

func between(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= lo && n <= hi
}

// ItemFilter narrows a posting listing. Zero values mean "any".
type ItemFilter struct {
	ItemType    ItemType
	Title       string
	CategoryID  string
	Status      *ItemStatus
	PublisherID string
	Limit       int32
	Cursor      string
}

// StatusChangeRequest is the body of a status update call.
type StatusChangeRequest struct {
	Status *ItemStatus `json:"status" validate:"required"`
}

// StatusChangeResult is returned after a successful transition.
type StatusChangeResult struct {
	Item   *Posting `json:"item"`
	Advice string   `json:"advice"`
}
