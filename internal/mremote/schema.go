package mremote

import "strings"

// Field is a logical connection attribute. Dialects spell most of them in
// more than one way, so each field maps to an ordered list of names.
type Field int

const (
	FieldName Field = iota
	FieldType
	FieldID
	FieldParent
	FieldHostname
	FieldProtocol
	FieldPort
	FieldUsername
	FieldPassword
	FieldDomain
	FieldDescription
	FieldResolution
	FieldColors
	FieldRedirectDiskDrives
	FieldRedirectPrinters
	FieldRedirectPorts
	FieldRedirectSmartCards
	FieldSSHOptions
	FieldPrivateKey
)

// fieldNames is the lookup order per field. Order matters: the first
// non-empty match wins.
var fieldNames = map[Field][]string{
	FieldName:               {"Name"},
	FieldType:               {"Type"},
	FieldID:                 {"Id", "ID"},
	FieldParent:             {"ParentId", "ParentID", "Parent"},
	FieldHostname:           {"Hostname", "Host", "Server"},
	FieldProtocol:           {"Protocol"},
	FieldPort:               {"Port"},
	FieldUsername:           {"Username", "User"},
	FieldPassword:           {"Password"},
	FieldDomain:             {"Domain"},
	FieldDescription:        {"Descr", "Description"},
	FieldResolution:         {"Resolution"},
	FieldColors:             {"Colors"},
	FieldRedirectDiskDrives: {"RedirectDiskDrives", "RedirectDrives"},
	FieldRedirectPrinters:   {"RedirectPrinters"},
	FieldRedirectPorts:      {"RedirectPorts"},
	FieldRedirectSmartCards: {"RedirectSmartCards"},
	FieldSSHOptions:         {"SSHOptions"},
	FieldPrivateKey:         {"PrivateKey", "PrivateKeyFile"},
}

// Names returns the accepted spellings of f in lookup order.
func (f Field) Names() []string {
	return fieldNames[f]
}

// Lookup resolves a field on an element: attributes first (in order), then a
// same-named child element's text, then "".
func (e *Element) Lookup(f Field) string {
	names := fieldNames[f]
	for _, n := range names {
		if v, ok := e.Attr(n); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	for _, n := range names {
		if v, ok := e.ChildText(n); ok && v != "" {
			return v
		}
	}
	return ""
}

func (e *Element) hasParentPointer() bool {
	return strings.TrimSpace(e.Lookup(FieldParent)) != ""
}

// IsConnectionLike reports whether the element carries a connection:
// explicit Type="Connection" or a non-empty host-like field.
func (e *Element) IsConnectionLike() bool {
	if !e.IsNode() {
		return false
	}
	return strings.EqualFold(e.Lookup(FieldType), "Connection") || e.Lookup(FieldHostname) != ""
}

// IsContainerLike reports whether the element groups other nodes.
func (e *Element) IsContainerLike() bool {
	if !e.IsNode() {
		return false
	}
	return strings.EqualFold(e.Lookup(FieldType), "Container") || len(e.ChildNodes()) > 0
}
