package utils

import (
	"github.com/go-viper/mapstructure/v2"
)

// AttributeMap holds free-form, backend specific settings read from a config file.
type AttributeMap map[string]interface{}

// Has reports whether name is set.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the named string attribute, or the empty string.
func (am AttributeMap) String(name string) string {
	if s, ok := am[name].(string); ok {
		return s
	}
	return ""
}

// Decode decodes the map into the struct pointed to by out, matching keys against json tags.
// Numbers and strings are converted where the target type asks for it, and durations may be
// written as strings such as "250ms".
func (am AttributeMap) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(am)
}
