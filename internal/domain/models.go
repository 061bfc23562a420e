package domain

import "time"

// JobStatus is the lifecycle stage reported by the translation backend.
// Transitions are forward-only: a job never leaves Completed or Failed.
type JobStatus string

const (
	StatusQueued     JobStatus = "Queued"
	StatusInProgress JobStatus = "InProgress"
	StatusCompleted  JobStatus = "Completed"
	StatusFailed     JobStatus = "Failed"
)

// IsTerminal reports whether the status will never change again.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the client-side projection of one submitted translation task.
// The backend owns the record; everything here is read-only metadata
// refreshed by polling.
type Job struct {
	JobID                string    `json:"jobId"`
	ChatID               string    `json:"chatId"`
	Status               JobStatus `json:"status"`
	CreatedAt            time.Time `json:"createdAt"`
	OriginalFileName     string    `json:"originalFileName"`
	FileType             string    `json:"fileType"`
	SourceLanguageID     int       `json:"sourceLanguageId"`
	TargetLanguageID     int       `json:"targetLanguageId"`
	SourceLanguageName   string    `json:"sourceLanguageName"`
	TargetLanguageName   string    `json:"targetLanguageName"`
	PageCount            int       `json:"pageCount,omitempty"`
	EstimatedWordCount   int       `json:"estimatedWordCount,omitempty"`
	EstimatedTimeMinutes int       `json:"estimatedTimeMinutes,omitempty"`
	FileSizeKB           int       `json:"fileSizeKB,omitempty"`
}

const (
	wordsPerPage    = 350
	pageSizeKB      = 2
	wordsPerMinute  = 500
	minEstimateMins = 1
)

// EstimatedPages returns the reported page count, deriving one from the
// file size when the backend did not provide an estimate.
func (j Job) EstimatedPages() int {
	if j.PageCount > 0 {
		return j.PageCount
	}
	if j.FileSizeKB > 0 {
		pages := j.FileSizeKB / pageSizeKB
		if pages < 1 {
			pages = 1
		}
		return pages
	}
	return 1
}

// EstimatedWords returns the reported word count, falling back to a
// per-page heuristic.
func (j Job) EstimatedWords() int {
	if j.EstimatedWordCount > 0 {
		return j.EstimatedWordCount
	}
	return j.EstimatedPages() * wordsPerPage
}

// EstimatedMinutes returns the reported time estimate, never below one
// minute.
func (j Job) EstimatedMinutes() int {
	if j.EstimatedTimeMinutes > 0 {
		return j.EstimatedTimeMinutes
	}
	mins := j.EstimatedWords() / wordsPerMinute
	if mins < minEstimateMins {
		mins = minEstimateMins
	}
	return mins
}

// TranslationResult is the payload attached to a completed job.
// FileData/FileName/ContentType describe an optional base64 copy of the
// source document, used only when the primary file fetch fails.
type TranslationResult struct {
	TranslatedContent string       `json:"translatedContent"`
	FileData          string       `json:"fileData,omitempty"`
	FileName          string       `json:"fileName,omitempty"`
	ContentType       string       `json:"contentType,omitempty"`
	Suggestions       []Suggestion `json:"suggestions,omitempty"`
}

// Suggestion is one proposed improvement to the translated text.
// SuggestedText may be edited by the user before acceptance; the edited
// value is what gets applied.
type Suggestion struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	OriginalText  string `json:"originalText"`
	SuggestedText string `json:"suggestedText"`
}

// IsEmpty reports whether the suggestion carries no usable content.
// The backend occasionally emits placeholder rows with every text field
// blank; those are dropped at the service boundary.
func (s Suggestion) IsEmpty() bool {
	return s.Description == "" && s.OriginalText == "" && s.SuggestedText == ""
}

// SuggestionBatchState discriminates the three shapes the suggestions
// endpoint can answer with.
type SuggestionBatchState string

const (
	BatchProcessing SuggestionBatchState = "processing"
	BatchReady      SuggestionBatchState = "ready"
	BatchTerminal   SuggestionBatchState = "terminal"
)

// SuggestionBatch is the decoded suggestions response. Status carries the
// raw backend status string for terminal batches.
type SuggestionBatch struct {
	State       SuggestionBatchState
	Status      string
	Suggestions []Suggestion
}

// ApplyRequest is the payload sent to the remote patch service when a
// suggestion's anchor text no longer matches the document verbatim.
type ApplyRequest struct {
	TranslatedContent string     `json:"translatedContent"`
	SuggestionID      string     `json:"suggestionId"`
	Suggestion        Suggestion `json:"suggestion"`
	TargetLanguageID  int        `json:"targetLanguageId"`
}

// ApplyResult is the patch service response.
type ApplyResult struct {
	Success        bool   `json:"success"`
	UpdatedContent string `json:"updatedContent"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

// RawFile is a fetched original document before hydration fills in
// default name and content type.
type RawFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReconstructedFile is the original document as presented to the user
// after hydration: always named, always typed.
type ReconstructedFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
	Size        int    `json:"size"`
}

// Chat is the persistent project record a job belongs to. It outlives the
// job and may embed the translation result once the job finishes.
type Chat struct {
	ChatID string             `json:"chatId"`
	Job    Job                `json:"job"`
	Result *TranslationResult `json:"result,omitempty"`
}

// StatusUpdate is one answer from the job status endpoint.
type StatusUpdate struct {
	Status  JobStatus `json:"status"`
	Message string    `json:"message,omitempty"`
}
