package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSubmissionInProgress indicates a Submit call overlapped an unfinished one.
var ErrSubmissionInProgress = errors.New("wizard: submission already in progress")

// ErrNotReady indicates the review gate was not satisfied.
var ErrNotReady = errors.New("wizard: submission requirements not met")

// ModelUploader stores one model payload and returns its confirmed identifier.
type ModelUploader interface {
	UploadModel(ctx context.Context, file FileSource) (string, error)
}

// SubmissionItem is one line of the quote-creation request.
type SubmissionItem struct {
	Model    string `json:"model"`
	Material string `json:"material"`
	Colour   string `json:"colour"`
	Process  string `json:"process"`
	Quantity int    `json:"quantity"`
}

// Submission is the quote-creation request body.
type Submission struct {
	Items         []SubmissionItem `json:"items"`
	CustomerEmail string           `json:"customerEmail,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// QuoteCreator submits the assembled quote and returns the created quote id.
type QuoteCreator interface {
	CreateQuote(ctx context.Context, submission Submission) (string, error)
}

// Submit uploads every file in order, then creates the quote. On success the
// wizard transitions to a completed summary and resets for another run. On
// failure it stays on the review step with a user-facing message; uploads
// that already finished are not rolled back.
func (m *Machine) Submit(ctx context.Context, authenticated bool, uploader ModelUploader, creator QuoteCreator) (*Summary, error) {
	m.mu.Lock()
	if m.submitting {
		m.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	if m.step != StepReview || !m.stepGateLocked(StepUpload) || !m.stepGateLocked(StepPreferences) {
		m.mu.Unlock()
		return nil, ErrNotReady
	}
	guestEmail := ""
	if !authenticated {
		if !ValidEmail(m.email) {
			m.mu.Unlock()
			return nil, ErrNotReady
		}
		guestEmail = m.email
	}

	m.submitting = true
	m.lastError = ""
	files := append([]ModelFile(nil), m.files...)
	preferences := make(map[string]Preference, len(m.preferences))
	for id, preference := range m.preferences {
		preferences[id] = *preference
	}
	notes := strings.TrimSpace(m.notes)
	m.mu.Unlock()

	summary, err := m.runSubmission(ctx, uploader, creator, files, preferences, guestEmail, notes)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitting = false
	if err != nil {
		m.lastError = err.Error()
		return nil, err
	}
	m.completed = summary
	m.resetLocked()
	return summary, nil
}

func (m *Machine) runSubmission(
	ctx context.Context,
	uploader ModelUploader,
	creator QuoteCreator,
	files []ModelFile,
	preferences map[string]Preference,
	guestEmail string,
	notes string,
) (*Summary, error) {
	items := make([]SubmissionItem, 0, len(files))
	summaryItems := make([]SummaryItem, 0, len(files))

	for _, file := range files {
		modelID, err := uploader.UploadModel(ctx, file.Source)
		if err != nil {
			return nil, fmt.Errorf("uploading %q failed: %w", file.Source.Name, err)
		}
		if modelID == "" {
			return nil, fmt.Errorf("uploading %q failed: no confirmed model id", file.Source.Name)
		}

		preference := preferences[file.ID]
		items = append(items, SubmissionItem{
			Model:    modelID,
			Material: preference.MaterialID,
			Colour:   preference.ColourID,
			Process:  preference.ProcessID,
			Quantity: preference.Quantity,
		})
		summaryItems = append(summaryItems, m.summaryItem(file, preference))
	}

	submission := Submission{Items: items, CustomerEmail: guestEmail, Notes: notes}
	quoteID, err := creator.CreateQuote(ctx, submission)
	if err != nil {
		return nil, fmt.Errorf("quote submission failed: %w", err)
	}

	return &Summary{
		QuoteID: quoteID,
		Email:   guestEmail,
		Notes:   notes,
		Items:   summaryItems,
	}, nil
}

func (m *Machine) summaryItem(file ModelFile, preference Preference) SummaryItem {
	item := SummaryItem{
		FileName:  file.Source.Name,
		SizeBytes: file.Source.Size,
		Quantity:  preference.Quantity,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, material := range m.options.Materials {
		if material.ID == preference.MaterialID {
			item.MaterialName = material.Name
			break
		}
	}
	for _, colour := range m.options.Colours {
		if colour.ID == preference.ColourID {
			item.ColourName = colour.Name
			item.Swatches = append([]string(nil), colour.Swatches...)
			break
		}
	}
	for _, process := range m.options.Processes {
		if process.ID == preference.ProcessID {
			item.ProcessName = process.Name
			break
		}
	}
	return item
}
