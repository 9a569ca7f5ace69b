package feats

import "strconv"

// Options is the per-declaration option map handed to feature
// functions. Values arrive as strings from the YAML configuration;
// absent keys fall back to the documented defaults of each function.
type Options map[string]string

// Int returns the integer value stored under key, or def.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// String returns the value stored under key, or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		return v
	}
	return def
}

// Bool returns the boolean value stored under key, or def.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch v {
	case "1", "true", "True", "yes":
		return true
	case "0", "false", "False", "no":
		return false
	}
	return def
}
