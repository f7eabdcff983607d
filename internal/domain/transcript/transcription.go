package transcript

// Transcription is the ASR output for one audio file.
// Duration is kept as reported by the backend, in seconds.
type Transcription struct {
	Text     string
	Duration string
}
