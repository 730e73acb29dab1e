package model

import "time"

// ProcessRecord is the outcome of processing one input file.
type ProcessRecord struct {
	Original string   `json:"original"`      // base name of the source file
	JPG      string   `json:"jpg,omitempty"` // generated JPG file name
	PNG      string   `json:"png,omitempty"` // generated transparent PNG, empty if not written
	AltText  string   `json:"alt_text"`
	Tags     []string `json:"tags"`
	Colors   []string `json:"colors"`
}

// Filename returns the name reported in the manifest's new_filename column.
func (r ProcessRecord) Filename() string {
	if r.JPG != "" {
		return r.JPG
	}

	return r.PNG
}

// Outputs lists the names of all files written for the record.
func (r ProcessRecord) Outputs() []string {
	out := make([]string, 0, 2)
	if r.JPG != "" {
		out = append(out, r.JPG)
	}
	if r.PNG != "" {
		out = append(out, r.PNG)
	}

	return out
}

// Failure describes an input that could not be processed.
type Failure struct {
	Original string `json:"original"`
	Path     string `json:"path"`
	Reason   string `json:"reason"`
}

// ProcessedEvent is published for each successfully processed item.
type ProcessedEvent struct {
	RunID       string        `json:"run_id"`
	Record      ProcessRecord `json:"record"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// BatchRequest asks the studio to process a set of paths into an output directory.
type BatchRequest struct {
	Paths     []string `json:"paths"`
	OutputDir string   `json:"output_dir"`
}
