package diagnostics

import (
	"git.home.luguber.info/inful/phest/internal/foundation/normalization"
)

// MessageType controls how a section is presented and whether it counts as an error.
type MessageType string

const (
	TypeSuccess MessageType = "success"
	TypePrimary MessageType = "primary"
	TypeInfo    MessageType = "info"
	TypeDanger  MessageType = "danger"
)

// displayOrder is the fixed group order of View.
var displayOrder = []MessageType{TypeSuccess, TypeDanger, TypePrimary, TypeInfo}

var messageTypeNormalizer = normalization.NewNormalizer(map[string]MessageType{
	"success": TypeSuccess,
	"primary": TypePrimary,
	"info":    TypeInfo,
	"danger":  TypeDanger,
	"error":   TypeDanger,
}, TypeSuccess)

// ParseMessageType accepts the four type names (case-insensitive) plus "error"
// as an alias of danger. Empty input yields TypeSuccess.
func ParseMessageType(raw string) (MessageType, error) {
	return messageTypeNormalizer.NormalizeWithError(raw)
}

// IsValid reports whether t is one of the four known types.
func (t MessageType) IsValid() bool {
	switch t {
	case TypeSuccess, TypePrimary, TypeInfo, TypeDanger:
		return true
	default:
		return false
	}
}

func (t MessageType) String() string { return string(t) }

// Section is a named, typed bucket of messages.
type Section struct {
	Key      string
	Title    string
	Type     MessageType
	Sort     bool
	Messages []string
}

// SectionOption customizes a section at registration.
type SectionOption func(*Section)

// WithType sets the section type. The default is TypeSuccess.
func WithType(t MessageType) SectionOption {
	return func(s *Section) { s.Type = t }
}

// Sorted makes View return the section's messages in lexical order.
func Sorted() SectionOption {
	return func(s *Section) { s.Sort = true }
}

// SectionView is one entry of the read-only projection returned by View.
type SectionView struct {
	Key      string      `json:"key"`
	Title    string      `json:"title"`
	Type     MessageType `json:"type"`
	Messages []string    `json:"messages"`
}
