package models

import "strings"

const (
	PostbackSetTime   = "set_time"
	PostbackClearTime = "clear_time"

	postbackSeparator = "|"
)

// EncodePostback packs a postback name and an optional time into callback data
func EncodePostback(data, timeOfDay string) string {
	if timeOfDay == "" {
		return data
	}
	return data + postbackSeparator + timeOfDay
}

// ParsePostback splits callback data into the postback name and its params
func ParsePostback(raw string) (string, map[string]string) {
	data, value, found := strings.Cut(raw, postbackSeparator)
	params := map[string]string{}
	if found {
		params["time"] = value
	}
	return data, params
}
