package domain

import "errors"

var (
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrFieldsNotFound signals that no extracted fields exist for a document.
	ErrFieldsNotFound = errors.New("extracted fields not found")
	// ErrEmptyQuestion signals a blank question in an ask request.
	ErrEmptyQuestion = errors.New("question is required")
	// ErrNoFiles signals an ingest request without any uploaded files.
	ErrNoFiles = errors.New("no files provided")
	// ErrNotPDF signals an uploaded file that is not a PDF.
	ErrNotPDF = errors.New("file is not a PDF")
	// ErrExtractionFailed signals that text could not be pulled from a source file.
	ErrExtractionFailed = errors.New("text extraction failed")
	// ErrGenerationFailed signals a generation backend failure. It is recovered
	// internally by the backend chain and never surfaces to callers.
	ErrGenerationFailed = errors.New("generation backend failed")
)
