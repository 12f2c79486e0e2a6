package keyboard

import "strings"

type ActionKind string

const (
	TogglePlay       ActionKind = "toggle_play"
	ToggleFullscreen ActionKind = "toggle_fullscreen"
	ToggleMute       ActionKind = "toggle_mute"
	SeekBy           ActionKind = "seek_by"
	ChangeVolume     ActionKind = "change_volume"
	TogglePiP        ActionKind = "toggle_pip"
	StepRate         ActionKind = "step_rate"
	PlaylistStep     ActionKind = "playlist_step"
	Escape           ActionKind = "escape"
	ShowHelp         ActionKind = "show_help"
)

// Action is a resolved key binding. Amount carries the seek seconds, the volume
// delta, or the direction (+1/-1) for step actions.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount float64    `json:"amount,omitempty"`
}

// Binding documents one key for the shortcuts help overlay.
type Binding struct {
	Keys        []string `json:"keys"`
	Description string   `json:"description"`
}

var bindings = map[string]Action{
	" ":          {Kind: TogglePlay},
	"k":          {Kind: TogglePlay},
	"f":          {Kind: ToggleFullscreen},
	"m":          {Kind: ToggleMute},
	"arrowleft":  {Kind: SeekBy, Amount: -10},
	"arrowright": {Kind: SeekBy, Amount: 10},
	"j":          {Kind: SeekBy, Amount: -5},
	"l":          {Kind: SeekBy, Amount: 5},
	"arrowup":    {Kind: ChangeVolume, Amount: 0.1},
	"arrowdown":  {Kind: ChangeVolume, Amount: -0.1},
	"p":          {Kind: TogglePiP},
	",":          {Kind: StepRate, Amount: -1},
	".":          {Kind: StepRate, Amount: 1},
	"[":          {Kind: PlaylistStep, Amount: -1},
	"]":          {Kind: PlaylistStep, Amount: 1},
	"escape":     {Kind: Escape},
	"?":          {Kind: ShowHelp},
}

// Lookup resolves a KeyboardEvent.key value. Keys typed into a focused text input
// never resolve.
func Lookup(key string, textInputFocused bool) (Action, bool) {
	if textInputFocused {
		return Action{}, false
	}

	if key == "Spacebar" {
		key = " "
	}

	action, ok := bindings[strings.ToLower(key)]
	return action, ok
}

func Help() []Binding {
	return []Binding{
		{Keys: []string{"Space", "K"}, Description: "Play / pause"},
		{Keys: []string{"F"}, Description: "Toggle fullscreen"},
		{Keys: []string{"M"}, Description: "Mute / unmute"},
		{Keys: []string{"←", "→"}, Description: "Seek 10 seconds"},
		{Keys: []string{"J", "L"}, Description: "Seek 5 seconds"},
		{Keys: []string{"↑", "↓"}, Description: "Volume"},
		{Keys: []string{"P"}, Description: "Picture-in-Picture"},
		{Keys: []string{",", "."}, Description: "Playback speed"},
		{Keys: []string{"[", "]"}, Description: "Previous / next in playlist"},
		{Keys: []string{"Esc"}, Description: "Exit fullscreen or close panel"},
		{Keys: []string{"?"}, Description: "Show shortcuts"},
	}
}
