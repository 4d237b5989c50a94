package quotes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status enumerates the staff-driven quote lifecycle.
type Status string

const (
	StatusNew       Status = "new"
	StatusReviewing Status = "reviewing"
	StatusQuoted    Status = "quoted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ErrInvalidStatus indicates an unknown quote status value.
var ErrInvalidStatus = errors.New("quotes: invalid status")

// ParseStatus validates a raw status value.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusNew:
		return StatusNew, nil
	case StatusReviewing:
		return StatusReviewing, nil
	case StatusQuoted:
		return StatusQuoted, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
}

// Quote is a customer's priced print request. Exactly one of CustomerID or
// CustomerEmail must be resolvable at save time. Amount is derived in integer
// minor currency units on every save.
type Quote struct {
	ID            string      `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	CustomerID    string      `gorm:"column:customer_id;size:190;not null;default:'';index" json:"customer,omitempty"`
	CustomerEmail string      `gorm:"column:customer_email;size:320;not null;default:''" json:"customerEmail,omitempty"`
	Status        Status      `gorm:"column:status;size:32;not null;default:'new'" json:"status"`
	Amount        int64       `gorm:"column:amount;not null;default:0" json:"amount"`
	Currency      string      `gorm:"column:currency;size:8;not null;default:''" json:"currency"`
	Notes         string      `gorm:"column:notes;type:text;not null;default:''" json:"notes,omitempty"`
	Items         []QuoteItem `gorm:"foreignKey:QuoteID;references:ID" json:"items"`
	CreatedAt     time.Time   `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time   `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Quote) TableName() string {
	return "quotes"
}

// QuoteItem is one line of a quote. FilamentID and LineAmount are derived on
// every save and never trusted from client input.
type QuoteItem struct {
	ID            int64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	QuoteID       string   `gorm:"column:quote_id;size:190;not null;index" json:"-"`
	Position      int      `gorm:"column:position;not null;default:0" json:"-"`
	ModelID       string   `gorm:"column:model_id;size:190;not null" json:"model"`
	MaterialID    string   `gorm:"column:material_id;size:190;not null" json:"material"`
	ColourID      string   `gorm:"column:colour_id;size:190;not null" json:"colour"`
	ProcessID     string   `gorm:"column:process_id;size:190;not null" json:"process"`
	FilamentID    string   `gorm:"column:filament_id;size:190;not null;default:''" json:"filament,omitempty"`
	Quantity      int      `gorm:"column:quantity;not null;default:1" json:"quantity"`
	Grams         float64  `gorm:"column:grams;not null;default:0" json:"grams,omitempty"`
	PriceOverride *float64 `gorm:"column:price_override" json:"priceOverride,omitempty"`
	LineAmount    int64    `gorm:"column:line_amount;not null;default:0" json:"lineAmount"`
}

// TableName provides the explicit table binding for GORM.
func (QuoteItem) TableName() string {
	return "quote_items"
}

// Gcode is one downstream print-job record derived from a quote. Exactly one
// exists per (quote, model, material, process, filament) tuple; the slicing
// worker fills in the weight and code payload later.
type Gcode struct {
	ID              string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	QuoteID         string    `gorm:"column:quote_id;size:190;not null;index" json:"quote"`
	ModelID         string    `gorm:"column:model_id;size:190;not null" json:"model"`
	MaterialID      string    `gorm:"column:material_id;size:190;not null" json:"material"`
	ProcessID       string    `gorm:"column:process_id;size:190;not null" json:"process"`
	FilamentID      string    `gorm:"column:filament_id;size:190;not null" json:"filament"`
	EstimatedWeight *float64  `gorm:"column:estimated_weight" json:"estimatedWeight,omitempty"`
	Code            string    `gorm:"column:code;type:text;not null;default:''" json:"-"`
	SliceJobID      string    `gorm:"column:slice_job_id;size:190;not null;default:''" json:"sliceJobId,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Gcode) TableName() string {
	return "gcodes"
}

// RelationRef accepts the shapes a relation field arrives in: a scalar
// identifier (string or number) or a populated object carrying an id/value
// field. When the object form includes a pricePerGram number it is captured
// so pricing can skip a redundant material fetch.
type RelationRef struct {
	ID           string
	PricePerGram *float64
}

// UnmarshalJSON normalizes the supported relation shapes to a scalar id.
func (r *RelationRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*r = RelationRef{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*r = RelationRef{ID: value}
		return nil
	case '{':
		var object struct {
			ID           json.RawMessage `json:"id"`
			Value        json.RawMessage `json:"value"`
			PricePerGram *float64        `json:"pricePerGram"`
		}
		if err := json.Unmarshal(data, &object); err != nil {
			return err
		}
		scalar := object.ID
		if len(scalar) == 0 {
			scalar = object.Value
		}
		id, err := scalarID(scalar)
		if err != nil {
			return err
		}
		*r = RelationRef{ID: id, PricePerGram: object.PricePerGram}
		return nil
	default:
		id, err := scalarID(data)
		if err != nil {
			return err
		}
		*r = RelationRef{ID: id}
		return nil
	}
}

// MarshalJSON emits the scalar identifier form.
func (r RelationRef) MarshalJSON() ([]byte, error) {
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

func scalarID(data json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return "", err
		}
		return value, nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return "", err
	}
	// Integer ids serialize without an exponent or fraction.
	if value, err := number.Int64(); err == nil {
		return strconv.FormatInt(value, 10), nil
	}
	return number.String(), nil
}

// Requester identifies who is saving a quote: an authenticated customer, a
// staff member, or nobody (guest).
type Requester struct {
	ID    string
	Email string
	Admin bool
}

// Anonymous reports whether no authenticated identity is present.
func (r Requester) Anonymous() bool {
	return r.ID == ""
}

// ItemInput is the client-supplied shape of one quote line.
type ItemInput struct {
	Model         RelationRef `json:"model"`
	Material      RelationRef `json:"material"`
	Colour        RelationRef `json:"colour"`
	Process       RelationRef `json:"process"`
	Quantity      float64     `json:"quantity"`
	Grams         float64     `json:"grams"`
	PriceOverride *float64    `json:"priceOverride"`
}

// QuoteInput is the client-supplied shape of a quote create or update.
// Nil Items on update means "keep the stored items" (they are still
// re-resolved and re-priced). Status is honoured for staff updates only.
type QuoteInput struct {
	Customer      RelationRef  `json:"customer"`
	CustomerEmail string       `json:"customerEmail"`
	Status        string       `json:"status"`
	Currency      string       `json:"currency"`
	Notes         *string      `json:"notes"`
	Items         []*ItemInput `json:"items"`
}
