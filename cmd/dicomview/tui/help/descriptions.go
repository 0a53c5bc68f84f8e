package help

// HelpText contains information about a field
type HelpText struct {
	Title       string
	Description string
	Details     string
}

// Texts contains help information for the generate form fields
var Texts = map[string]HelpText{
	"output": {
		Title:       "OUTPUT DIRECTORY",
		Description: "Directory where DICOM files will be created.",
		Details:     "Will be created if it doesn't exist. Files are named slice_0001.dcm, slice_0002.dcm, ...",
	},
	"slices": {
		Title:       "SLICES",
		Description: "Number of axial slices in the series.",
		Details:     "Each slice becomes one .dcm file. InstanceNumber runs from 1 to the slice count.",
	},
	"size": {
		Title:       "MATRIX SIZE",
		Description: "Width and height of each slice in pixels.",
		Details:     "Slices are square. 256 matches the demo series; 512 is a typical clinical CT matrix.",
	},
	"patient_id": {
		Title:       "PATIENT ID",
		Description: "Patient identifier written to every file.",
		Details:     "Also seeds the study and series UIDs, so the same ID and output give the same UIDs.",
	},
	"params": {
		Title:       "VOLUME",
		Description: "Which synthetic chest volume to write.",
		Details: `Chest CT - HU range -1000..800 with padding outside the field of view
Preview  - lighter variant tuned so the lung window shows the raw field`,
	},
	"workers": {
		Title:       "WORKERS",
		Description: "Number of parallel file writers.",
		Details:     "0 uses one worker per CPU core.",
	},
}

// KeyBinding describes one viewer key.
type KeyBinding struct {
	Keys        string
	Description string
}

// ViewerKeys lists the slice viewer key bindings in display order.
var ViewerKeys = []KeyBinding{
	{"↑/k ↓/j", "next / previous slice"},
	{"pgup pgdn", "jump 10 slices"},
	{"home end", "first / last slice"},
	{"1 2 3", "lung / soft / bone window"},
	{"a", "auto window from the current slice"},
	{"[ ]", "window center -/+ 10"},
	{"- +", "window width -/+ 50"},
	{"?", "toggle help"},
	{"q", "quit"},
}
