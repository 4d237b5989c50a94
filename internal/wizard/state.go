package wizard

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/pricing"
)

// Step identifies one screen of the quote wizard.
type Step int

const (
	StepUpload      Step = 0
	StepPreferences Step = 1
	StepReview      Step = 2
)

// NotesMaxLength caps the free-text notes carried on a submission.
const NotesMaxLength = 2000

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the value has a local@domain.tld shape.
func ValidEmail(value string) bool {
	return emailPattern.MatchString(strings.TrimSpace(value))
}

// FileSource is a selected model file. Open is called once per submission
// attempt to stream the payload to the upload endpoint.
type FileSource struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// ModelFile is a file accepted into the wizard, with its generated handle.
type ModelFile struct {
	ID     string
	Source FileSource
}

// Preference is the per-file print configuration. Empty strings mean "not yet
// chosen"; Quantity always holds a normalized positive count.
type Preference struct {
	MaterialID string
	ColourID   string
	ProcessID  string
	Quantity   int
}

// Selection is the bulk-apply staging area on the preferences step.
type Selection struct {
	MaterialID string
	ColourID   string
	ProcessID  string
}

// Complete reports whether every bulk field has been chosen.
func (s Selection) Complete() bool {
	return s.MaterialID != "" && s.ColourID != "" && s.ProcessID != ""
}

// SummaryItem is one line of a completed submission's recap.
type SummaryItem struct {
	FileName     string
	SizeBytes    int64
	MaterialName string
	ColourName   string
	Swatches     []string
	ProcessName  string
	Quantity     int
}

// Summary is shown after a successful submission.
type Summary struct {
	QuoteID string
	Email   string
	Notes   string
	Items   []SummaryItem
}

// Machine drives the quote wizard: Upload, Preferences, Review, then a
// non-reentrant Submit. All methods are safe for concurrent use, though the
// wizard is normally driven from a single UI loop.
type Machine struct {
	mu sync.Mutex

	step        Step
	files       []ModelFile
	preferences map[string]*Preference
	bulk        Selection
	email       string
	notes       string
	submitting  bool
	completed   *Summary
	lastError   string

	options      catalog.WizardOptions
	combinations *catalog.CombinationIndex
}

// NewMachine constructs an empty wizard on the upload step.
func NewMachine() *Machine {
	return &Machine{
		step:         StepUpload,
		preferences:  map[string]*Preference{},
		combinations: catalog.NewCombinationIndex(nil),
	}
}

// SetOptions installs the catalog option sets and rebuilds the combination
// index used for dependent colour filtering.
func (m *Machine) SetOptions(options catalog.WizardOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = options
	m.combinations = catalog.NewCombinationIndex(options.Combinations)
}

// Step returns the current wizard step.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Files returns the accepted files in selection order.
func (m *Machine) Files() []ModelFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ModelFile(nil), m.files...)
}

// Preference returns a copy of the file's preference record.
func (m *Machine) Preference(fileID string) (Preference, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	preference, ok := m.preferences[fileID]
	if !ok {
		return Preference{}, false
	}
	return *preference, true
}

// AddFiles accepts new files, silently dropping any whose (name, size)
// fingerprint matches an already accepted file. Returns the handles of the
// files actually added.
func (m *Machine) AddFiles(sources ...FileSource) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := map[string]struct{}{}
	for _, file := range m.files {
		existing[fileFingerprint(file.Source)] = struct{}{}
	}

	added := make([]string, 0, len(sources))
	for _, source := range sources {
		fingerprint := fileFingerprint(source)
		if _, ok := existing[fingerprint]; ok {
			continue
		}
		existing[fingerprint] = struct{}{}

		id := uuid.NewString()
		m.files = append(m.files, ModelFile{ID: id, Source: source})
		m.preferences[id] = &Preference{Quantity: 1}
		added = append(added, id)
	}
	return added
}

// RemoveFile drops a file and its preference record.
func (m *Machine) RemoveFile(fileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for index, file := range m.files {
		if file.ID == fileID {
			m.files = append(m.files[:index], m.files[index+1:]...)
			break
		}
	}
	delete(m.preferences, fileID)
}

// SetMaterial records a file's material. Changing material invalidates the
// dependent colour choice.
func (m *Machine) SetMaterial(fileID, materialID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	preference, ok := m.preferences[fileID]
	if !ok {
		return
	}
	if preference.MaterialID != materialID {
		preference.ColourID = ""
	}
	preference.MaterialID = materialID
}

// SetColour records a file's colour.
func (m *Machine) SetColour(fileID, colourID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if preference, ok := m.preferences[fileID]; ok {
		preference.ColourID = colourID
	}
}

// SetProcess records a file's process.
func (m *Machine) SetProcess(fileID, processID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if preference, ok := m.preferences[fileID]; ok {
		preference.ProcessID = processID
	}
}

// SetQuantity normalizes and records a file's quantity.
func (m *Machine) SetQuantity(fileID string, raw float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if preference, ok := m.preferences[fileID]; ok {
		preference.Quantity = pricing.NormalizeQuantity(raw)
	}
}

// ColoursFor lists the colour ids reachable from the material via an active
// filament combination, sorted for stable display.
func (m *Machine) ColoursFor(materialID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	reachable := m.combinations.ColoursFor(materialID)
	ids := make([]string, 0, len(reachable))
	for id := range reachable {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetBulkMaterial stages a material for bulk apply, clearing the staged
// colour when the material changes.
func (m *Machine) SetBulkMaterial(materialID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bulk.MaterialID != materialID {
		m.bulk.ColourID = ""
	}
	m.bulk.MaterialID = materialID
}

// SetBulkColour stages a colour for bulk apply.
func (m *Machine) SetBulkColour(colourID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulk.ColourID = colourID
}

// SetBulkProcess stages a process for bulk apply.
func (m *Machine) SetBulkProcess(processID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulk.ProcessID = processID
}

// Bulk returns the staged bulk selection.
func (m *Machine) Bulk() Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bulk
}

// ApplyBulk copies a complete staged selection onto every file's preference
// record, leaving quantities untouched. Reports whether anything was applied.
func (m *Machine) ApplyBulk() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.bulk.Complete() {
		return false
	}
	for _, preference := range m.preferences {
		preference.MaterialID = m.bulk.MaterialID
		preference.ColourID = m.bulk.ColourID
		preference.ProcessID = m.bulk.ProcessID
	}
	return true
}

// SetEmail records the guest contact email.
func (m *Machine) SetEmail(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.email = strings.TrimSpace(email)
}

// SetNotes records the optional notes, truncated to the length cap.
func (m *Machine) SetNotes(notes string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(notes) > NotesMaxLength {
		notes = notes[:NotesMaxLength]
	}
	m.notes = notes
}

// LastError returns the message of the most recent failed submission.
func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Completed returns the summary of the last successful submission, if any.
func (m *Machine) Completed() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

// Submitting reports whether a submission is in flight.
func (m *Machine) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting
}

// CanMoveForward reports whether the gate of the given step is satisfied.
func (m *Machine) CanMoveForward(step Step) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepGateLocked(step)
}

func (m *Machine) stepGateLocked(step Step) bool {
	switch step {
	case StepUpload:
		return len(m.files) > 0
	case StepPreferences:
		for _, file := range m.files {
			preference, ok := m.preferences[file.ID]
			if !ok {
				return false
			}
			if preference.MaterialID == "" || preference.ColourID == "" || preference.ProcessID == "" || preference.Quantity <= 0 {
				return false
			}
		}
		return len(m.files) > 0
	default:
		return true
	}
}

// GoToStep moves to the requested step. Backward navigation is always allowed
// while no submission is in flight; forward navigation passes through each
// intermediate step's gate. Reports whether the step changed.
func (m *Machine) GoToStep(target Step) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitting {
		return false
	}
	if target < StepUpload {
		target = StepUpload
	}
	if target > StepReview {
		target = StepReview
	}
	if target <= m.step {
		m.step = target
		return true
	}
	for step := m.step; step < target; step++ {
		if !m.stepGateLocked(step) {
			return false
		}
	}
	m.step = target
	return true
}

// CanSubmit reports whether the review gate is satisfied. Guests additionally
// need a syntactically valid contact email.
func (m *Machine) CanSubmit(authenticated bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != StepReview || m.submitting {
		return false
	}
	if !m.stepGateLocked(StepUpload) || !m.stepGateLocked(StepPreferences) {
		return false
	}
	if !authenticated && !ValidEmail(m.email) {
		return false
	}
	return true
}

func (m *Machine) resetLocked() {
	m.step = StepUpload
	m.files = nil
	m.preferences = map[string]*Preference{}
	m.bulk = Selection{}
	m.email = ""
	m.notes = ""
}

func fileFingerprint(source FileSource) string {
	return fmt.Sprintf("%s:%d", source.Name, source.Size)
}
