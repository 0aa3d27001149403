package diag

import "ember/internal/source"

// New constructs a diagnostic with no notes or fixes.
func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

// NewError is a convenience for the common SevError case.
func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// NewWarning is a convenience for the common SevWarning case.
func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

// WithNote appends a secondary span/label pair.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// WithVariable records the binding name the diagnostic is about.
func (d Diagnostic) WithVariable(name string) Diagnostic {
	d.Variable = name
	return d
}

// WithFix appends a suggested repair.
func (d Diagnostic) WithFix(description string, confidence Confidence, edits ...TextEdit) Diagnostic {
	d.Fixes = append(d.Fixes, Fix{Description: description, Confidence: confidence, Edits: edits})
	return d
}
