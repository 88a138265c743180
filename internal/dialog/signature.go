package dialog

import "strings"

// Window is a top-level window seen by a Finder.
type Window struct {
	Handle uintptr
	Class  string
	Title  string
	PID    uint32
}

// Signature identifies the modal dialog a guarded call is expected to raise.
// Class must match exactly (case-insensitive); Title is a substring match.
type Signature struct {
	Name  string `json:"name" toml:"-" yaml:"-"`
	Class string `json:"class" toml:"class" yaml:"class"`
	Title string `json:"title" toml:"title" yaml:"title"`
}

func (s Signature) Matches(w Window) bool {
	if s.Class != "" && !strings.EqualFold(s.Class, w.Class) {
		return false
	}
	return strings.Contains(strings.ToLower(w.Title), strings.ToLower(s.Title))
}

// Known signatures. #32770 is the standard Win32 dialog class.
var (
	ModifyDimension = Signature{Name: "modify_dimension", Class: "#32770", Title: "Modify"}
	HoleWizard      = Signature{Name: "hole_wizard", Class: "#32770", Title: "SOLIDWORKS"}
)

// DefaultSignatures returns the built-in signatures keyed by name.
func DefaultSignatures() map[string]Signature {
	return map[string]Signature{
		ModifyDimension.Name: ModifyDimension,
		HoleWizard.Name:      HoleWizard,
	}
}

// Finder enumerates the host's top-level windows and dismisses dialogs.
type Finder interface {
	// Find returns the first visible window matching sig.
	Find(sig Signature) (Window, bool, error)
	// Dismiss confirms w's default button.
	Dismiss(w Window) error
}
