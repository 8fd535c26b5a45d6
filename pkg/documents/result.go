package documents

import "strings"

// Result describes one ingestion attempt. It is created per call and never
// mutated afterwards.
type Result struct {
	Filename  string `json:"filename"`
	Path      string `json:"file_path"`
	SizeBytes int64  `json:"file_size"`
	Extension string `json:"file_type"`
	MimeType  string `json:"mime_type,omitempty"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

func success(name, path string, size int64, ext, mimeType, content string) Result {
	return Result{
		Filename:  name,
		Path:      path,
		SizeBytes: size,
		Extension: ext,
		MimeType:  mimeType,
		Content:   content,
		WordCount: len(strings.Fields(content)),
		CharCount: len([]rune(content)),
		Success:   true,
		Message:   "Successfully processed " + name,
	}
}

// failure keeps the identifying fields and zeroes everything else.
func failure(name, path string, err error) Result {
	if name == "" {
		name = "unknown"
	}
	if path == "" {
		path = "unknown"
	}
	return Result{
		Filename:  name,
		Path:      path,
		Extension: "unknown",
		Message:   "Error processing document: " + err.Error(),
	}
}
