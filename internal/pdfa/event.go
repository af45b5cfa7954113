package pdfa

import (
	"fmt"
	"strings"
)

// EventSeverity is the suggested severity of a conversion event. Values are
// ordered from least to most severe so callers can track a maximum.
type EventSeverity int

const (
	// SeverityInformation marks a change that keeps the visual appearance.
	SeverityInformation EventSeverity = iota
	// SeverityWarning marks a change the user should review.
	SeverityWarning
	// SeverityError marks a problem that prevents a conforming result.
	SeverityError
)

func (s EventSeverity) String() string {
	switch s {
	case SeverityInformation:
		return "information"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Letter returns the one-letter tag used in event listings.
func (s EventSeverity) Letter() string {
	switch s {
	case SeverityInformation:
		return "I"
	case SeverityWarning:
		return "W"
	default:
		return "E"
	}
}

// EventCategory classifies what a conversion step did to the document.
type EventCategory uint32

const (
	CategoryVisualDifferences      EventCategory = 0x00001
	CategoryRepairedCorruption     EventCategory = 0x00002
	CategoryManagedColors          EventCategory = 0x00004
	CategoryChangedColorant        EventCategory = 0x00008
	CategoryRemovedExternalContent EventCategory = 0x00010
	CategoryConvertedFont          EventCategory = 0x00020
	CategorySubstitutedFont        EventCategory = 0x00040
	CategoryRemovedTransparency    EventCategory = 0x00080
	CategoryRemovedAnnotation      EventCategory = 0x00100
	CategoryRemovedMultimedia      EventCategory = 0x00200
	CategoryRemovedAction          EventCategory = 0x00400
	CategoryRemovedMetadata        EventCategory = 0x00800
	CategoryRemovedStructure       EventCategory = 0x01000
	CategoryRemovedOptionalContent EventCategory = 0x02000
	CategoryConvertedEmbeddedFile  EventCategory = 0x04000
	CategoryRemovedEmbeddedFile    EventCategory = 0x08000
	CategoryRemovedSignature       EventCategory = 0x10000
	CategoryRemovedEncryption      EventCategory = 0x20000
)

var categoryNames = []struct {
	category EventCategory
	name     string
}{
	{CategoryVisualDifferences, "VisualDifferences"},
	{CategoryRepairedCorruption, "RepairedCorruption"},
	{CategoryManagedColors, "ManagedColors"},
	{CategoryChangedColorant, "ChangedColorant"},
	{CategoryRemovedExternalContent, "RemovedExternalContent"},
	{CategoryConvertedFont, "ConvertedFont"},
	{CategorySubstitutedFont, "SubstitutedFont"},
	{CategoryRemovedTransparency, "RemovedTransparency"},
	{CategoryRemovedAnnotation, "RemovedAnnotation"},
	{CategoryRemovedMultimedia, "RemovedMultimedia"},
	{CategoryRemovedAction, "RemovedAction"},
	{CategoryRemovedMetadata, "RemovedMetadata"},
	{CategoryRemovedStructure, "RemovedStructure"},
	{CategoryRemovedOptionalContent, "RemovedOptionalContent"},
	{CategoryConvertedEmbeddedFile, "ConvertedEmbeddedFile"},
	{CategoryRemovedEmbeddedFile, "RemovedEmbeddedFile"},
	{CategoryRemovedSignature, "RemovedSignature"},
	{CategoryRemovedEncryption, "RemovedEncryption"},
}

// String joins the names of all set flags with "|".
func (c EventCategory) String() string {
	if c == 0 {
		return "None"
	}
	var names []string
	for _, cn := range categoryNames {
		if c&cn.category != 0 {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("0x%05x", uint32(c))
	}
	return strings.Join(names, "|")
}

// EventCode identifies the specific condition behind an event.
type EventCode int

const (
	CodeEventGeneric EventCode = iota
	CodeEventRemovedXfa
	CodeEventFontNotEmbedded
	CodeEventFontNoUnicode
	CodeEventRemovedJavaScript
	CodeEventAddedOutputIntent
	CodeEventWroteMetadata
	CodeEventDecrypted
	CodeEventAddedFileID
	CodeEventTransparency
	CodeEventUninspectedFonts
)

var eventCodeNames = map[EventCode]string{
	CodeEventGeneric:           "Generic",
	CodeEventRemovedXfa:        "RemovedXfa",
	CodeEventFontNotEmbedded:   "FontNotEmbedded",
	CodeEventFontNoUnicode:     "FontNoUnicode",
	CodeEventRemovedJavaScript: "RemovedJavaScript",
	CodeEventAddedOutputIntent: "AddedOutputIntent",
	CodeEventWroteMetadata:     "WroteMetadata",
	CodeEventDecrypted:         "Decrypted",
	CodeEventAddedFileID:       "AddedFileID",
	CodeEventTransparency:      "Transparency",
	CodeEventUninspectedFonts:  "UninspectedFonts",
}

func (c EventCode) String() string {
	if name, ok := eventCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("EventCode(%d)", int(c))
}

// Event describes one issue handled during conversion.
type Event struct {
	// DataPart names the embedded part the event concerns; empty for the main document
	DataPart string
	// Message is a human-readable description
	Message string
	// Severity is the suggested severity
	Severity EventSeverity
	// Category classifies the effect on the document
	Category EventCategory
	// Code identifies the condition
	Code EventCode
	// Context names the object concerned, e.g. "Annotation" or "Font F1"
	Context string
	// Page is the 1-based page number, 0 when the event is not page specific
	Page int
}

// String renders the event the way the command-line driver lists it.
func (e Event) String() string {
	if e.Page > 0 {
		return fmt.Sprintf("- %s %s: %s (%s on page %d)", e.Severity.Letter(), e.Category, e.Message, e.Context, e.Page)
	}
	return fmt.Sprintf("- %s %s: %s (%s)", e.Severity.Letter(), e.Category, e.Message, e.Context)
}

// EventHandler receives conversion events. Handlers run synchronously on the
// converting goroutine and must return quickly.
type EventHandler func(Event)
