package tabular

// ReaderConfig holds the loader settings an operator may set
type ReaderConfig struct {
	// Encoding is auto, utf-8, utf-16, windows-1252 or latin1
	Encoding string `json:"encoding"`
	// Delimiter overrides the extension default and sniffing for text files
	Delimiter string `json:"delimiter"`
}

// DefaultReaderConfig detects encoding and delimiter
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{Encoding: EncodingAuto}
}
