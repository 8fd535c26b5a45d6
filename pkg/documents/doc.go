// Package documents turns files into plain text for the assistant.
//
// A Processor validates the file (exists, within the size limit, a format
// it can read), picks an Extractor by extension, and reports the outcome as
// a Result. Ingest never returns an error: failures are Results with
// Success false and a human-readable Message.
package documents
