package noteservice

import (
	"github.com/starford/sowilo/internal/document"
	"github.com/starford/sowilo/internal/syntax"
)

// Paste converts pasted text into inline document nodes.
func (s *Service) Paste(text string) []*document.Node {
	return s.recognizer.Paste(text)
}

// MatchInput reports the marker completed by the last typed character.
func (s *Service) MatchInput(text string) (syntax.Match, bool) {
	return s.recognizer.MatchInput(text)
}

// Recognize runs paste recognition over every text leaf of doc.
func (s *Service) Recognize(doc *document.Node) *document.Node {
	return s.recognizer.RecognizeDocument(doc)
}
