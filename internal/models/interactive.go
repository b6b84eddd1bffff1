package models

// TimePicker is the interactive message offered for choosing a delivery time.
// Each option emits a set_time postback, the pause button emits clear_time.
type TimePicker struct {
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	PauseText  string   `json:"pause_text"`
	PauseLabel string   `json:"pause_label"`
}
